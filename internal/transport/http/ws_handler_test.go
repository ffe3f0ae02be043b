package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quizard-service/internal/domain"
)

func TestWebSocketStreamsEvents(t *testing.T) {
	server, _ := newTestServer(t)

	u := "ws" + server.URL[len("http"):] + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	resp := doJSON(t, http.MethodPost, server.URL+"/quizzes", "teacher-1", createBody())
	created := decode[struct {
		Ref string `json:"ref"`
	}](t, resp)
	doJSON(t, http.MethodPost, server.URL+"/quizzes/"+created.Ref+"/attempts", "student-1",
		map[string]any{"answers": []int{0, 2, 3}})

	first := readEvent(conn, t)
	if first.Type != domain.EventQuizCreated || first.QuizRef != created.Ref {
		t.Fatalf("expected creation event first, got %+v", first)
	}
	second := readEvent(conn, t)
	if second.Type != domain.EventQuizAttempted || second.Student != "student-1" || second.Score != 100 {
		t.Fatalf("expected attempt event, got %+v", second)
	}
}

func TestWebSocketFiltersByQuizRef(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/quizzes", "teacher-1", createBody())
	first := decode[struct {
		Ref string `json:"ref"`
	}](t, resp)

	u := "ws" + server.URL[len("http"):] + "/ws/events?quizRef=" + first.Ref
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Activity on another quiz must not reach this subscription.
	resp = doJSON(t, http.MethodPost, server.URL+"/quizzes", "teacher-2", createBody())
	other := decode[struct {
		Ref string `json:"ref"`
	}](t, resp)
	doJSON(t, http.MethodPost, server.URL+"/quizzes/"+other.Ref+"/attempts", "student-9",
		map[string]any{"answers": []int{0, 2, 3}})
	doJSON(t, http.MethodPost, server.URL+"/quizzes/"+first.Ref+"/attempts", "student-1",
		map[string]any{"answers": []int{0, 2, 3}})

	event := readEvent(conn, t)
	if event.QuizRef != first.Ref || event.Student != "student-1" {
		t.Fatalf("expected only events for %s, got %+v", first.Ref, event)
	}
}

func readEvent(conn *websocket.Conn, t *testing.T) domain.Event {
	t.Helper()
	var msg struct {
		Type    string       `json:"type"`
		Payload domain.Event `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Payload
}
