package encoder_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"joedb/pkg/database"
	"joedb/pkg/decoder"
	"joedb/pkg/encoder"
	"joedb/pkg/format"
	"joedb/pkg/types"
)

func sampleRecords() []types.Record {
	return []types.Record{
		{
			"message": types.String("connection from 10.0.0.1 refused"),
			"host":    types.Map(types.Record{"name": types.String("web-01")}),
		},
		{
			"message": types.String("connection from 10.0.0.2 accepted"),
			"host":    types.Map(types.Record{"name": types.String("web-02")}),
		},
		{
			"message": types.String("retry count=007 at 2024-01-02T03:04:05Z"),
			"host":    types.Map(types.Record{"name": types.String("web-01")}),
		},
		{
			"message": types.String("plain line with no variables"),
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	db := database.New()
	for _, r := range sampleRecords() {
		require.NoError(t, db.Insert(r))
	}

	blob, err := encoder.Encode(db)
	require.NoError(t, err)
	require.True(t, len(blob) > len(format.Magic))
	require.Equal(t, format.Magic[:], blob[:len(format.Magic)])

	decoded, err := decoder.Decode(blob)
	require.NoError(t, err)
	require.Equal(t, db.RecordCount(), decoded.RecordCount())

	wantCols := make(map[string]bool)
	for _, c := range db.Columns() {
		wantCols[c.Name] = true
	}
	for _, c := range decoded.Columns() {
		require.True(t, wantCols[c.Name], "decoded an unexpected column %q", c.Name)
		require.Equal(t, decoded.RecordCount(), c.Len(), "column %q has the wrong row count", c.Name)
	}
}

func TestEncodeDecodeRehydratesOriginalRecords(t *testing.T) {
	db := database.New()
	records := sampleRecords()
	for _, r := range records {
		require.NoError(t, db.Insert(r))
	}

	blob, err := encoder.Encode(db)
	require.NoError(t, err)

	decoded, err := decoder.Decode(blob)
	require.NoError(t, err)

	rehydrated, err := decoder.Rehydrate(decoded)
	require.NoError(t, err)
	require.Len(t, rehydrated, len(records))

	gotMessages := make(map[string]bool, len(rehydrated))
	for _, r := range rehydrated {
		gotMessages[r["message"].Str] = true
	}
	for _, r := range records {
		require.True(t, gotMessages[r["message"].Str], "missing rehydrated message %q", r["message"].Str)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, err := decoder.Decode([]byte("not a joedb file at all"))
	require.Error(t, err)
}

func TestDecodeRejectsTruncatedFile(t *testing.T) {
	db := database.New()
	require.NoError(t, db.Insert(types.Record{"message": types.String("hello world")}))
	blob, err := encoder.Encode(db)
	require.NoError(t, err)

	_, err = decoder.Decode(blob[:len(blob)-5])
	require.Error(t, err)
}
