package buywatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestNotifier(baseURL string) *TelegramNotifier {
	return &TelegramNotifier{
		Token:   "test-token",
		ChatID:  "-100123",
		BaseURL: baseURL,
		Logger:  NewDiscardLogger(),
	}
}

func TestSendTextMessage(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotPayload telegramSendRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		json.NewEncoder(w).Encode(telegramResponse{OK: true})
	}))
	defer server.Close()

	notifier := newTestNotifier(server.URL)
	err := notifier.Send(context.Background(), Message{Text: "<b>hello</b>"})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	if gotPath != "/bottest-token/sendMessage" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotPayload.ChatID != "-100123" {
		t.Fatalf("unexpected chat id: %s", gotPayload.ChatID)
	}
	if gotPayload.Text != "<b>hello</b>" {
		t.Fatalf("unexpected text: %s", gotPayload.Text)
	}
	if gotPayload.ParseMode != "HTML" {
		t.Fatalf("unexpected parse mode: %s", gotPayload.ParseMode)
	}
	if gotPayload.ReplyMarkup != nil {
		t.Fatalf("unexpected reply markup: %+v", gotPayload.ReplyMarkup)
	}
}

func TestSendPhotoWhenImageSet(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotPayload telegramSendRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		json.NewEncoder(w).Encode(telegramResponse{OK: true})
	}))
	defer server.Close()

	notifier := newTestNotifier(server.URL)
	err := notifier.Send(context.Background(), Message{
		Text:     "caption text",
		ImageURL: "https://img.test/alert.png",
		Buttons:  []Button{{Label: "🛒 BUY", URL: "https://raydium.io/swap/"}},
	})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	if gotPath != "/bottest-token/sendPhoto" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotPayload.Photo != "https://img.test/alert.png" {
		t.Fatalf("unexpected photo: %s", gotPayload.Photo)
	}
	if gotPayload.Caption != "caption text" {
		t.Fatalf("unexpected caption: %s", gotPayload.Caption)
	}
	if gotPayload.Text != "" {
		t.Fatalf("text should be empty for photos, got: %s", gotPayload.Text)
	}
	if gotPayload.ReplyMarkup == nil ||
		len(gotPayload.ReplyMarkup.InlineKeyboard) != 1 ||
		len(gotPayload.ReplyMarkup.InlineKeyboard[0]) != 1 {
		t.Fatalf("unexpected keyboard: %+v", gotPayload.ReplyMarkup)
	}
	button := gotPayload.ReplyMarkup.InlineKeyboard[0][0]
	if button.Text != "🛒 BUY" || button.URL != "https://raydium.io/swap/" {
		t.Fatalf("unexpected button: %+v", button)
	}
}

func TestSendReportsRejection(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(telegramResponse{
			OK:          false,
			ErrorCode:   400,
			Description: "Bad Request: chat not found",
		})
	}))
	defer server.Close()

	notifier := newTestNotifier(server.URL)
	err := notifier.Send(context.Background(), Message{Text: "hello"})
	if err == nil {
		t.Fatal("expected error for rejected message")
	}
}

func TestSendTransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	notifier := newTestNotifier(server.URL)
	if err := notifier.Send(context.Background(), Message{Text: "hello"}); err == nil {
		t.Fatal("expected transport error")
	}
}
