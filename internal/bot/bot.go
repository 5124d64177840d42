package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tanyadoc/tanyadoc/internal/config"
	"github.com/tanyadoc/tanyadoc/internal/extract"
	"github.com/tanyadoc/tanyadoc/internal/filestore"
	"github.com/tanyadoc/tanyadoc/internal/ingest"
	"github.com/tanyadoc/tanyadoc/internal/rag"
	"github.com/tanyadoc/tanyadoc/internal/repo"
	"github.com/tanyadoc/tanyadoc/internal/session"
)

type Deps struct {
	Sessions   *session.Manager
	Ingestor   *ingest.Ingestor
	RAG        *rag.Service
	Chunks     *repo.ChunkRepo
	Extractors *extract.Registry
	Archive    filestore.Store
}

// Bot is the Telegram transport: it parses commands, forwards uploads to
// the ingestion pipeline and questions to the RAG service, and renders
// everything back as chat messages.
type Bot struct {
	api            *tgbotapi.BotAPI
	client         *http.Client
	maxUploadBytes int64

	sessions   *session.Manager
	ingestor   *ingest.Ingestor
	rag        *rag.Service
	chunks     *repo.ChunkRepo
	extractors *extract.Registry
	archive    filestore.Store
}

func New(cfg config.TelegramConfig, deps Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("init telegram api: %w", err)
	}
	b := &Bot{
		api:            api,
		client:         &http.Client{Timeout: 2 * time.Minute},
		maxUploadBytes: cfg.MaxUploadBytes,
		sessions:       deps.Sessions,
		ingestor:       deps.Ingestor,
		rag:            deps.RAG,
		chunks:         deps.Chunks,
		extractors:     deps.Extractors,
		archive:        deps.Archive,
	}
	return b, nil
}

// Run polls for updates until ctx is cancelled. Handler failures never
// stop the loop; they become short user-facing messages.
func (b *Bot) Run(ctx context.Context) error {
	logutil.GetLogger(ctx).Info("bot started", zap.String("username", b.api.Self.UserName))
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			logutil.GetLogger(ctx).Info("bot stopping")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logutil.GetLogger(ctx).Error("handler panic", zap.Any("panic", r))
		}
	}()
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	switch {
	case msg.Document != nil:
		b.handleDocument(ctx, msg)
	case msg.IsCommand():
		b.handleCommand(ctx, msg)
	case strings.TrimSpace(msg.Text) != "":
		b.handleQuestion(ctx, msg)
	}
}

func (b *Bot) sendPlain(chatID int64, text string) (tgbotapi.Message, error) {
	return b.api.Send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendHTML(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	return b.api.Send(msg)
}

func (b *Bot) sendMarkdownV2(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	return b.api.Send(msg)
}

// notifyProgress edits a previously sent status message. Edit failures are
// deliberately swallowed: progress is best effort and must never disturb
// the work it reports on.
func (b *Bot) notifyProgress(ctx context.Context, chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := b.api.Send(edit); err != nil {
		logutil.GetLogger(ctx).Debug("progress edit failed", zap.Error(err))
	}
}

func (b *Bot) deleteMessage(ctx context.Context, chatID int64, messageID int) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		logutil.GetLogger(ctx).Debug("delete message failed", zap.Error(err))
	}
}

func (b *Bot) downloadDocument(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("resolve telegram file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download telegram file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download telegram file: %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, b.maxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > b.maxUploadBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", b.maxUploadBytes)
	}
	return data, nil
}
