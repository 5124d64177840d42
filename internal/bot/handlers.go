package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tanyadoc/tanyadoc/internal/export"
	"github.com/tanyadoc/tanyadoc/internal/ingest"
	errs "github.com/tanyadoc/tanyadoc/internal/pkg/errors"
	"github.com/tanyadoc/tanyadoc/internal/session"
)

const helpText = `<b>Halo! Saya asisten dokumen pribadi Anda.</b>

<b>Perintah yang tersedia:</b>
• Kirim file PDF, DOCX, TXT, atau MD untuk dianalisis.
• /fokus <code>nama_file.pdf</code> - Fokus tanya jawab ke satu file.
• /hapus_fokus - Kembali bertanya ke semua file.
• /list_docs - Lihat daftar dokumen.
• /delete_doc <code>nama_file.pdf</code> - Hapus dokumen.
• /export - Ekspor riwayat chat ke PDF.
• /clear - Hapus riwayat chat sesi ini.
• /cancel - Batalkan proses upload file.`

func userKey(msg *tgbotapi.Message) string {
	return strconv.FormatInt(msg.From.ID, 10)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	sess := b.sessions.Get(userKey(msg))
	switch msg.Command() {
	case "start":
		sess.Reset()
		b.sendHTML(msg.Chat.ID, helpText)
	case "fokus":
		b.cmdSetFocus(msg, sess)
	case "hapus_fokus":
		b.cmdClearFocus(msg, sess)
	case "list_docs":
		b.cmdListDocs(ctx, msg, sess)
	case "delete_doc":
		b.cmdDeleteDoc(ctx, msg, sess)
	case "export":
		b.cmdExport(ctx, msg, sess)
	case "clear":
		sess.ClearHistory()
		b.sendPlain(msg.Chat.ID, "Riwayat percakapan sesi ini telah dihapus.")
	case "cancel":
		b.cmdCancel(msg, sess)
	default:
		b.sendHTML(msg.Chat.ID, helpText)
	}
}

func (b *Bot) cmdSetFocus(msg *tgbotapi.Message, sess *session.Session) {
	fileName := strings.TrimSpace(msg.CommandArguments())
	if fileName == "" {
		b.sendHTML(msg.Chat.ID, "Gunakan: /fokus <code>nama_file.pdf</code>")
		return
	}
	sess.SetFocus(fileName)
	b.sendHTML(msg.Chat.ID, fmt.Sprintf("✅ Fokus sekarang diatur ke: <code>%s</code>", html.EscapeString(fileName)))
}

func (b *Bot) cmdClearFocus(msg *tgbotapi.Message, sess *session.Session) {
	if sess.ClearFocus() {
		b.sendPlain(msg.Chat.ID, "✅ Fokus telah dihapus. Anda sekarang bisa bertanya dari semua dokumen.")
		return
	}
	b.sendPlain(msg.Chat.ID, "Tidak ada fokus yang sedang aktif.")
}

func (b *Bot) cmdListDocs(ctx context.Context, msg *tgbotapi.Message, sess *session.Session) {
	files, err := b.chunks.ListFiles(ctx, sess.UserID())
	if err != nil {
		b.replyError(ctx, msg.Chat.ID, err)
		return
	}
	if len(files) == 0 {
		b.sendPlain(msg.Chat.ID, "Anda belum mengunggah dokumen.")
		return
	}
	var sb strings.Builder
	sb.WriteString("<b>Dokumen tersimpan:</b>")
	for _, name := range files {
		sb.WriteString(fmt.Sprintf("\n• <code>%s</code>", html.EscapeString(name)))
	}
	b.sendHTML(msg.Chat.ID, sb.String())
}

func (b *Bot) cmdDeleteDoc(ctx context.Context, msg *tgbotapi.Message, sess *session.Session) {
	fileName := strings.TrimSpace(msg.CommandArguments())
	if fileName == "" {
		b.sendHTML(msg.Chat.ID, "Gunakan: /delete_doc <code>nama_file.pdf</code>")
		return
	}
	if err := b.chunks.DeleteFile(ctx, sess.UserID(), fileName); err != nil {
		b.replyError(ctx, msg.Chat.ID, err)
		return
	}
	b.sendHTML(msg.Chat.ID, fmt.Sprintf("Dokumen '<code>%s</code>' telah dihapus.", html.EscapeString(fileName)))
}

func (b *Bot) cmdExport(ctx context.Context, msg *tgbotapi.Message, sess *session.Session) {
	history := sess.History()
	if len(history) == 0 {
		b.sendPlain(msg.Chat.ID, "Riwayat percakapan masih kosong.")
		return
	}
	b.sendPlain(msg.Chat.ID, "Mempersiapkan file PDF riwayat percakapan...")
	data, err := export.RenderHistory(history)
	if err != nil {
		b.replyError(ctx, msg.Chat.ID, err)
		return
	}
	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("history_%s.pdf", sess.UserID()),
		Bytes: data,
	})
	if _, err := b.api.Send(doc); err != nil {
		b.replyError(ctx, msg.Chat.ID, err)
	}
}

func (b *Bot) cmdCancel(msg *tgbotapi.Message, sess *session.Session) {
	task := sess.Task()
	if task == nil {
		b.sendPlain(msg.Chat.ID, "Tidak ada proses unggah yang sedang berjalan.")
		return
	}
	task.Cancel()
	b.sendPlain(msg.Chat.ID, "Sinyal pembatalan terkirim...")
}

func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	doc := msg.Document
	sess := b.sessions.Get(userKey(msg))
	logger := logutil.GetLogger(ctx).With(
		zap.String("user_id", sess.UserID()),
		zap.String("file_name", doc.FileName),
	)

	if !b.extractors.Supported(doc.FileName) {
		b.sendPlain(msg.Chat.ID, "Format file tidak didukung. Kirim file PDF, DOCX, TXT, atau MD.")
		return
	}
	if int64(doc.FileSize) > b.maxUploadBytes {
		b.sendPlain(msg.Chat.ID, "File terlalu besar untuk diproses.")
		return
	}

	task := ingest.NewTask(doc.FileName)
	if err := sess.SetTask(task); err != nil {
		b.sendPlain(msg.Chat.ID, "Harap tunggu, proses lain sedang berjalan.")
		return
	}

	data, err := b.downloadDocument(ctx, doc.FileID)
	if err != nil {
		sess.ClearTask()
		logger.Error("document download failed", zap.Error(err))
		b.sendPlain(msg.Chat.ID, "Gagal mengunduh file dari Telegram. Silakan coba lagi.")
		return
	}
	b.archiveOriginal(ctx, sess.UserID(), doc.FileName, data)

	status, _ := b.sendHTML(msg.Chat.ID, fmt.Sprintf(
		"Memproses '<code>%s</code>'. Gunakan /cancel untuk membatalkan jika proses lama.",
		html.EscapeString(doc.FileName)))

	start := time.Now()
	// Ingestion detaches so the session stays responsive to /cancel and
	// other commands while it runs.
	go b.runIngestion(ctx, sess, task, msg.Chat.ID, status.MessageID, doc.FileName, data, start)
}

func (b *Bot) runIngestion(ctx context.Context, sess *session.Session, task *ingest.Task, chatID int64, statusID int, fileName string, data []byte, start time.Time) {
	defer sess.ClearTask()
	progress := func(done, total int) {
		b.notifyProgress(ctx, chatID, statusID, fmt.Sprintf(
			"Memproses potongan %d dari %d untuk '%s'...", done, total, fileName))
	}
	err := b.ingestor.Run(ctx, task, sess.UserID(), fileName, data, progress)
	escaped := html.EscapeString(fileName)
	switch {
	case err == nil:
		b.sendHTML(chatID, fmt.Sprintf("✅ Dokumen '<code>%s</code>' berhasil diproses dalam %.2f detik.",
			escaped, time.Since(start).Seconds()))
	case errs.IsCancelled(err):
		b.sendHTML(chatID, fmt.Sprintf("⚠️ Proses unggah untuk '<code>%s</code>' dibatalkan.", escaped))
	case errors.Is(err, errs.ErrNoContent):
		b.sendPlain(chatID, "Dokumen ini tidak berisi konten yang bisa diproses.")
	default:
		logutil.GetLogger(ctx).Error("ingestion failed",
			zap.String("user_id", sess.UserID()),
			zap.String("file_name", fileName),
			zap.Error(err))
		b.sendPlain(chatID, "Gagal memproses file. Silakan unggah ulang untuk mencoba lagi.")
	}
}

func (b *Bot) archiveOriginal(ctx context.Context, userID, fileName string, data []byte) {
	if b.archive == nil {
		return
	}
	key := userID + "/" + fileName
	if err := b.archive.Save(ctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
		logutil.GetLogger(ctx).Warn("archive upload failed", zap.String("key", key), zap.Error(err))
	}
}

func (b *Bot) handleQuestion(ctx context.Context, msg *tgbotapi.Message) {
	sess := b.sessions.Get(userKey(msg))
	question := strings.TrimSpace(msg.Text)

	has, err := b.chunks.HasAny(ctx, sess.UserID())
	if err != nil {
		b.replyError(ctx, msg.Chat.ID, err)
		return
	}
	if !has {
		b.sendPlain(msg.Chat.ID, "Halo! Sepertinya Anda belum mengunggah dokumen apa pun.\n\nSilakan unggah file PDF, DOCX, TXT, atau MD terlebih dahulu agar saya bisa menjawab pertanyaan Anda.")
		return
	}

	waiting, _ := b.sendPlain(msg.Chat.ID, "Memahami pertanyaan Anda...")
	history := sess.History()
	onRefined := func(refined string) {
		b.notifyProgress(ctx, msg.Chat.ID, waiting.MessageID, fmt.Sprintf("Mencari informasi untuk: '%s'...", refined))
	}
	result, err := b.rag.Ask(ctx, sess.UserID(), question, sess.Focus(), history, onRefined)
	if err != nil {
		b.deleteMessage(ctx, msg.Chat.ID, waiting.MessageID)
		b.replyError(ctx, msg.Chat.ID, err)
		return
	}
	if len(result.Sources) == 0 {
		b.notifyProgress(ctx, msg.Chat.ID, waiting.MessageID,
			"Maaf, saya tidak dapat menemukan informasi spesifik mengenai itu di dokumen Anda. Silakan coba pertanyaan lain.")
		return
	}

	sess.AppendTurn(result.RefinedQuestion, result.Answer)
	b.deleteMessage(ctx, msg.Chat.ID, waiting.MessageID)
	if _, err := b.sendMarkdownV2(msg.Chat.ID, formatReply(result.Answer, result.Sources)); err != nil {
		logutil.GetLogger(ctx).Warn("formatted reply rejected, sending plain", zap.Error(err))
		b.sendPlain(msg.Chat.ID, result.Answer)
	}
}

// replyError surfaces a failure as a short notice without internal detail.
func (b *Bot) replyError(ctx context.Context, chatID int64, err error) {
	logutil.GetLogger(ctx).Error("turn failed", zap.Error(err))
	b.sendPlain(chatID, "Terjadi kesalahan. Silakan coba lagi.")
}
