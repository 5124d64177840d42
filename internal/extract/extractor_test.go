package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tanyadoc/tanyadoc/internal/model"
)

type staticExtractor struct {
	units []model.ContentUnit
}

func (s *staticExtractor) Extract(ctx context.Context, data []byte) ([]model.ContentUnit, error) {
	return s.units, nil
}

func TestRegistrySupported(t *testing.T) {
	r := NewRegistry()
	r.Register(".PDF", &staticExtractor{})
	r.Register("txt", &staticExtractor{})

	require.True(t, r.Supported("laporan.pdf"))
	require.True(t, r.Supported("catatan.TXT"))
	require.False(t, r.Supported("archive.zip"))
	require.False(t, r.Supported("tanpa-ekstensi"))
}

func TestRegistryUnsupportedIsNotAnError(t *testing.T) {
	r := NewRegistry()
	units, err := r.Extract(context.Background(), "binary.exe", []byte{0x00})
	require.NoError(t, err)
	require.Nil(t, units)
}

func TestRegistryFiltersEmptyUnitsAndClampsPages(t *testing.T) {
	r := NewRegistry()
	r.Register("txt", &staticExtractor{units: []model.ContentUnit{
		{Text: "isi pertama", Page: 0},
		{Text: "   \n ", Page: 2},
		{Text: "isi kedua", Page: 3},
	}})

	units, err := r.Extract(context.Background(), "doc.txt", nil)
	require.NoError(t, err)
	require.Len(t, units, 2)
	require.Equal(t, 1, units[0].Page)
	require.Equal(t, "isi kedua", units[1].Text)
	require.Equal(t, 3, units[1].Page)
}

func TestTextExtractorNormalizesLineEndings(t *testing.T) {
	e := NewText()
	units, err := e.Extract(context.Background(), []byte("baris satu\r\nbaris dua\r\n"))
	require.NoError(t, err)
	require.Len(t, units, 1)
	require.Equal(t, "baris satu\nbaris dua\n", units[0].Text)
	require.Equal(t, 1, units[0].Page)
}

func TestTextExtractorEmptyInput(t *testing.T) {
	e := NewText()
	units, err := e.Extract(context.Background(), []byte("  \r\n \n"))
	require.NoError(t, err)
	require.Nil(t, units)
}
