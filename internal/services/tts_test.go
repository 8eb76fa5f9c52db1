package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testTTSService(srv *httptest.Server) *TTSService {
	return &TTSService{
		apiKey:   "test-key",
		endpoint: srv.URL,
		client:   srv.Client(),
	}
}

func TestSynthesize(t *testing.T) {
	audio := []byte("mp3 bytes")
	var gotReq ttsSynthesizeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/text:synthesize" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Error("api key missing from query")
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		fmt.Fprintf(w, `{"audioContent":%q}`, base64.StdEncoding.EncodeToString(audio))
	}))
	defer srv.Close()

	svc := testTTSService(srv)
	got, err := svc.Synthesize(context.Background(), "hello there", "", "", "")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if string(got) != string(audio) {
		t.Errorf("audio = %q, want %q", got, audio)
	}

	if gotReq.Input.Text != "hello there" {
		t.Errorf("text = %q", gotReq.Input.Text)
	}
	if gotReq.Voice.Name != DefaultVoiceName || gotReq.Voice.LanguageCode != DefaultLanguageCode {
		t.Errorf("defaults not applied: %+v", gotReq.Voice)
	}
	if gotReq.AudioConfig.AudioEncoding != DefaultAudioFormat {
		t.Errorf("encoding = %q", gotReq.AudioConfig.AudioEncoding)
	}
}

func TestSynthesize_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid voice"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	svc := testTTSService(srv)
	if _, err := svc.Synthesize(context.Background(), "hi", "bogus", "", ""); err == nil {
		t.Error("non-200 response should be an error")
	}
}

func TestSynthesize_Disabled(t *testing.T) {
	svc := NewTTSService("", time.Second)
	if svc.Enabled() {
		t.Error("service without a key must report disabled")
	}
	if _, err := svc.Synthesize(context.Background(), "hi", "", "", ""); err == nil {
		t.Error("synthesis without a key should be an error")
	}
}

func TestListVoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("languageCode") != "en-GB" {
			t.Errorf("languageCode = %q", r.URL.Query().Get("languageCode"))
		}
		fmt.Fprint(w, `{"voices":[{"name":"en-GB-Wavenet-A","languageCodes":["en-GB"],"ssmlGender":"FEMALE"}]}`)
	}))
	defer srv.Close()

	svc := testTTSService(srv)
	voices, err := svc.ListVoices(context.Background(), "en-GB")
	if err != nil {
		t.Fatalf("ListVoices failed: %v", err)
	}
	if len(voices) != 1 || voices[0].Name != "en-GB-Wavenet-A" {
		t.Errorf("voices = %+v", voices)
	}
}

func TestAudioExtension(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"MP3", ".mp3"},
		{"OGG_OPUS", ".ogg"},
		{"LINEAR16", ".wav"},
		{"", ".mp3"},
	}
	for _, tt := range tests {
		if got := AudioExtension(tt.format); got != tt.want {
			t.Errorf("AudioExtension(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}
}
