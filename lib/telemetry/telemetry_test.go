package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetupWithoutExporters(t *testing.T) {
	tel, err := Setup(context.Background(), "hmcpl-test", Config{})
	require.NoError(t, err)
	require.Nil(t, tel.TracerProvider)
	require.Nil(t, tel.MeterProvider)
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestConfigEnabled(t *testing.T) {
	require.False(t, Config{}.Enabled())
	require.True(t, Config{Otlp: OtlpConfig{Traces: OtlpConnConfig{HttpEndpoint: "http://localhost:4318"}}}.Enabled())
	require.True(t, Config{Otlp: OtlpConfig{Metrics: OtlpConnConfig{GrpcEndpoint: "http://localhost:4317"}}}.Enabled())
}

func TestTraceRestyRedactsSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "aspen_session", Value: "secret"})
		w.Header().Set("content-type", "application/json")
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	recorder := tracetest.NewSpanRecorder()
	provider := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	client := resty.New()
	// install the tracer of the test provider directly
	client.OnBeforeRequest(onBeforeRequest(provider.Tracer("test")))
	client.OnAfterResponse(onAfterResponse)
	client.OnError(onError)

	_, err := client.R().
		SetHeader("cookie", "aspen_session=secret").
		Get(server.URL + "/MyAccount/AJAX")
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "http GET", spans[0].Name())

	attrs := map[attribute.Key]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	require.Equal(t, "<redacted>", attrs["request/header: Cookie"])
	require.Equal(t, "<redacted>", attrs["response/header: Set-Cookie"])
	require.Equal(t, `{"success":true}`, attrs["response/body"])
	require.NotContains(t, attrs, attribute.Key("request/body"))
}

func TestTraceRestyRecordsFormBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	recorder := tracetest.NewSpanRecorder()
	provider := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	client := resty.New()
	client.OnBeforeRequest(onBeforeRequest(provider.Tracer("test")))
	client.OnAfterResponse(onAfterResponse)

	_, err := client.R().
		SetFormData(map[string]string{"method": "renewItem"}).
		Post(server.URL + "/MyAccount/AJAX")
	require.NoError(t, err)
	_, err = client.R().Get(server.URL + "/MyAccount/AJAX?method=getMenuDataIls")
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	for i, want := range []string{"method=renewItem", ""} {
		body := ""
		for _, kv := range spans[i].Attributes() {
			if kv.Key == "request/body" {
				body = kv.Value.Emit()
			}
		}
		require.Equal(t, want, body)
	}
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short"))
	long := make([]byte, maxBodyAttribute+10)
	for i := range long {
		long[i] = 'a'
	}
	require.Len(t, truncate(string(long)), maxBodyAttribute+len("...(truncated)"))
}
