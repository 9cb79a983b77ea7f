package restyutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestDumpExchanges(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "aspen_session", Value: "secret"})
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "dump")
	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	client := resty.New()
	DumpExchanges(client, output)

	_, err = client.R().
		SetHeader("cookie", "aspen_session=secret").
		SetFormData(map[string]string{"method": "renewItem"}).
		Post(server.URL + "/MyAccount/AJAX")
	require.NoError(t, err)

	contents, err := os.ReadFile(filepath.Join(dir, "0001-POST.txt"))
	require.NoError(t, err)
	dump := string(contents)
	require.Contains(t, dump, ">>> POST "+server.URL+"/MyAccount/AJAX")
	require.Contains(t, dump, "<<< 200 "+server.URL+"/MyAccount/AJAX")
	require.Contains(t, dump, "method=renewItem")
	require.Contains(t, dump, "Cookie: <redacted>")
	require.Contains(t, dump, "Set-Cookie: <redacted>")
	require.NotContains(t, dump, "secret")
	require.Contains(t, dump, `{"success":true}`)
}

func TestDumpExchangesWithoutBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	client := resty.New()
	DumpExchanges(client, output)

	_, err = client.R().Get(server.URL + "/MyAccount/AJAX?method=getMenuDataIls")
	require.NoError(t, err)
	_, err = client.R().Get(server.URL + "/MyAccount/AJAX?method=getCheckouts")
	require.NoError(t, err)

	first, err := os.ReadFile(filepath.Join(dir, "0001-GET.txt"))
	require.NoError(t, err)
	require.Contains(t, string(first), ">>> GET "+server.URL+"/MyAccount/AJAX?method=getMenuDataIls")
	require.Contains(t, string(first), `{"success":true}`)

	second, err := os.ReadFile(filepath.Join(dir, "0002-GET.txt"))
	require.NoError(t, err)
	require.Contains(t, string(second), "method=getCheckouts")
}

func TestDumpExchangesNilOutput(t *testing.T) {
	client := resty.New()
	DumpExchanges(client, nil)
}
