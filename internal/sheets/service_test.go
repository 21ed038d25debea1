package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"nfse/internal/export"
	"nfse/pkg/models"
)

// fakeSheets serves the handful of Sheets API calls the service makes.
type fakeSheets struct {
	mu       sync.Mutex
	sheets   []string
	header   bool
	codes    []string
	appended [][]interface{}
	calls    []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	f.calls = append(f.calls, r.Method+" "+path)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasSuffix(path, ":append"):
		var vr sheets.ValueRange
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &vr)
		f.appended = append(f.appended, vr.Values...)
		_, _ = w.Write([]byte(`{}`))

	case strings.HasSuffix(path, ":batchUpdate"):
		_, _ = w.Write([]byte(`{"replies":[{"addSheet":{"properties":{"sheetId":7}}}]}`))

	case strings.Contains(path, "/values/") && r.Method == http.MethodPut:
		f.header = true
		_, _ = w.Write([]byte(`{}`))

	case strings.Contains(path, "/values/"):
		var values [][]interface{}
		if strings.Contains(path, "A1:") {
			if f.header {
				values = [][]interface{}{{"file"}}
			}
		} else {
			for _, c := range f.codes {
				values = append(values, []interface{}{c})
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"values": values})

	default:
		var list []map[string]interface{}
		for i, title := range f.sheets {
			list = append(list, map[string]interface{}{
				"properties": map[string]interface{}{"sheetId": i, "title": title},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"sheets": list})
	}
}

func newTestService(t *testing.T, fake *fakeSheets) *Service {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := NewSheetsServiceWithOptions(context.Background(), "sheet-id",
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return svc
}

func TestExtractSpreadsheetID(t *testing.T) {
	id, err := extractSpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC-d_9/edit#gid=0")
	require.NoError(t, err)
	assert.Equal(t, "1AbC-d_9", id)

	_, err = extractSpreadsheetID("https://example.com/not-a-sheet")
	assert.Error(t, err)
}

func TestColumnName(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{0, "A"},
		{1, "B"},
		{25, "Z"},
		{26, "AA"},
	}
	for _, tt := range tests {
		got, err := columnName(tt.index)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := columnName(-1)
	assert.Error(t, err)

	last, err := lastColumn()
	require.NoError(t, err)
	assert.Equal(t, "T", last)
}

func TestColumnOf(t *testing.T) {
	col, err := columnOf("verification_code")
	require.NoError(t, err)
	assert.Equal(t, "B", col)

	_, err = columnOf("missing")
	assert.ErrorContains(t, err, "not exported")
}

func TestAppendRowsCreatesSheet(t *testing.T) {
	fake := &fakeSheets{sheets: []string{"Sheet1"}}
	svc := newTestService(t, fake)

	rows := []export.Row{
		export.NewRow("a.pdf", &models.NotaFiscal{VerificationCode: "AAAA.BBBB.CCCC", PaymentStatus: "Pending"}),
		export.NewRow("b.pdf", &models.NotaFiscal{VerificationCode: "DDDD.EEEE.FFFF", PaymentStatus: "Pago"}),
	}
	require.NoError(t, svc.AppendRows(context.Background(), "Notas_Fiscais", rows))

	assert.True(t, fake.header)
	require.Len(t, fake.appended, 2)
	assert.Equal(t, "a.pdf", fake.appended[0][0])
	assert.Equal(t, "DDDD.EEEE.FFFF", fake.appended[1][1])
}

func TestAppendRowsNothingToWrite(t *testing.T) {
	fake := &fakeSheets{}
	svc := newTestService(t, fake)

	require.NoError(t, svc.AppendRows(context.Background(), "Notas_Fiscais", nil))
	assert.Empty(t, fake.calls)
}

func TestExistingCodes(t *testing.T) {
	fake := &fakeSheets{sheets: []string{"Notas_Fiscais"}, codes: []string{"410A.04FB.4D57", " ", "5880.7878.DA08"}}
	svc := newTestService(t, fake)

	codes, err := svc.ExistingCodes(context.Background(), "Notas_Fiscais")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"410A.04FB.4D57": true, "5880.7878.DA08": true}, codes)

	codes, err = svc.ExistingCodes(context.Background(), "Other")
	require.NoError(t, err)
	assert.Empty(t, codes)
}
