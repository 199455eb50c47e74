package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/training-scheduler/internal/application"
	"github.com/example/training-scheduler/internal/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	opts = append([]Option{WithLogger(logging.Discard()), WithHTTPClient(server.Client())}, opts...)
	return NewClient(server.URL+"/api/", opts...), &hits
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, payload any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("failed to encode payload: %v", err)
	}
}

func sampleSchedule(id string) map[string]any {
	return map[string]any{
		"id":              id,
		"date":            "2024-05-01",
		"institutionName": "North Elementary",
		"region":          "North",
		"capacity":        30,
		"trainingType":    "class",
		"status":          "open",
		"createdBy":       "user-1",
	}
}

func TestClient_ListSchedules_Envelope(t *testing.T) {
	t.Parallel()

	client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/schedules" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("expected bearer token, got %q", got)
		}
		if r.Header.Get("X-Request-ID") != "req-1" {
			t.Errorf("expected request id header, got %q", r.Header.Get("X-Request-ID"))
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"success": true,
			"data":    []any{sampleSchedule("s1"), sampleSchedule("s2")},
		})
	}, WithTokenSource(TokenFunc(func() string { return "token-1" })), WithRequestIDGenerator(func() string { return "req-1" }))

	schedules, err := client.ListSchedules(context.Background())
	if err != nil {
		t.Fatalf("ListSchedules returned error: %v", err)
	}
	if len(schedules) != 2 || schedules[0].ID != "s1" || schedules[1].ID != "s2" {
		t.Fatalf("unexpected schedules: %+v", schedules)
	}
	if schedules[0].Date != application.NewDate(2024, time.May, 1) {
		t.Fatalf("unexpected date: %v", schedules[0].Date)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected exactly one request, got %d", hits.Load())
	}
}

func TestClient_ListSchedules_BarePayload(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, []any{sampleSchedule("s1")})
	})

	schedules, err := client.ListSchedules(context.Background())
	if err != nil {
		t.Fatalf("ListSchedules returned error: %v", err)
	}
	if len(schedules) != 1 || schedules[0].ID != "s1" {
		t.Fatalf("unexpected schedules: %+v", schedules)
	}
}

func TestClient_FailureShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		code    string
		message string
		status  int
	}{
		{
			name: "success false without transport error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(t, w, http.StatusOK, map[string]any{
					"success": false,
					"error":   map[string]string{"code": "CAPACITY_EXCEEDED", "message": "Capacity exceeded"},
				})
			},
			code:    "CAPACITY_EXCEEDED",
			message: "Capacity exceeded",
			status:  http.StatusOK,
		},
		{
			name: "success false without error body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(t, w, http.StatusOK, map[string]any{"success": false})
			},
			code:    CodeRequestFailed,
			message: "Failed to create schedule",
			status:  http.StatusOK,
		},
		{
			name: "non-2xx with envelope",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(t, w, http.StatusConflict, map[string]any{
					"success": false,
					"error":   map[string]string{"code": "DUPLICATE", "message": "Schedule already exists"},
				})
			},
			code:    "DUPLICATE",
			message: "Schedule already exists",
			status:  http.StatusConflict,
		},
		{
			name: "non-2xx without body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			code:    "HTTP_502",
			message: "Failed to create schedule (502 Bad Gateway)",
			status:  http.StatusBadGateway,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = io.WriteString(w, "{not json")
			},
			code:   CodeMalformed,
			status: http.StatusOK,
		},
		{
			name: "success without data",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(t, w, http.StatusOK, map[string]any{"success": true})
			},
			code:   CodeMalformed,
			status: http.StatusOK,
		},
		{
			name: "empty object",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = io.WriteString(w, "{}")
			},
			code:   CodeMalformed,
			status: http.StatusOK,
		},
		{
			name: "bare null",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = io.WriteString(w, "null")
			},
			code:   CodeMalformed,
			status: http.StatusOK,
		},
		{
			name: "error object without success flag",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(t, w, http.StatusOK, map[string]any{
					"error": map[string]string{"code": "E", "message": "boom"},
				})
			},
			code:    "E",
			message: "boom",
			status:  http.StatusOK,
		},
		{
			name: "entity without id",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(t, w, http.StatusCreated, map[string]any{
					"success": true,
					"data":    map[string]any{"region": "North", "capacity": 30},
				})
			},
			code:   CodeMalformed,
			status: http.StatusCreated,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client, hits := newTestClient(t, tc.handler)
			_, err := client.CreateSchedule(context.Background(), application.ScheduleInput{Region: "North"})

			gErr, ok := AsError(err)
			if !ok {
				t.Fatalf("expected gateway error, got %T %v", err, err)
			}
			if gErr.Code != tc.code {
				t.Fatalf("expected code %q, got %q", tc.code, gErr.Code)
			}
			if tc.message != "" && gErr.Message != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, gErr.Message)
			}
			if gErr.Status != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, gErr.Status)
			}
			if hits.Load() != 1 {
				t.Fatalf("expected exactly one request without retries, got %d", hits.Load())
			}
		})
	}
}

func TestClient_NetworkFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(url, WithLogger(logging.Discard()))
	_, err := client.ListSchedules(context.Background())

	gErr, ok := AsError(err)
	if !ok || gErr.Code != CodeNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
	if gErr.Message == "" {
		t.Fatalf("expected human readable message")
	}
}

func TestClient_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := client.DeleteSchedule(ctx, "s1")
	gErr, ok := AsError(err)
	if !ok || gErr.Code != CodeTimeout {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped deadline error, got %v", err)
	}
}

func TestClient_DeleteAcceptsEmptyBody(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/schedules/s%2F1" && r.URL.Path != "/api/schedules/s/1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.DeleteSchedule(context.Background(), "s/1"); err != nil {
		t.Fatalf("DeleteSchedule returned error: %v", err)
	}
}

func TestClient_RejectsEmptyIDsWithoutRequest(t *testing.T) {
	t.Parallel()

	client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})

	err := client.DeleteSession(context.Background(), "s1", " ")
	gErr, ok := AsError(err)
	if !ok || gErr.Code != CodeInvalidInput {
		t.Fatalf("expected invalid input error, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no request, got %d", hits.Load())
	}
}

func TestClient_ListSessions_PaginationAndMeta(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/schedules/s1/sessions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("page") != "2" || r.URL.Query().Get("pageSize") != "5" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"success": true,
			"data": []any{map[string]any{
				"id": "se1", "scheduleId": "s1", "startTime": "09:00", "endTime": "10:30",
				"assignedInstructorId": nil, "trainingType": "class", "compensation": 5000,
			}},
			"meta": map[string]int{"page": 2, "pageSize": 5, "totalCount": 6},
		})
	})

	page, err := client.ListSessions(context.Background(), "s1", 2, 5)
	if err != nil {
		t.Fatalf("ListSessions returned error: %v", err)
	}
	if len(page.Data) != 1 || page.Data[0].EndTime.String() != "10:30" || page.Data[0].Assigned() {
		t.Fatalf("unexpected sessions: %+v", page.Data)
	}
	if page.Meta == nil || page.Meta.TotalCount != 6 {
		t.Fatalf("expected meta to be decoded, got %+v", page.Meta)
	}
}

func TestClient_ApplyAndCancel(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/sessions/se1/apply":
			writeJSON(t, w, http.StatusCreated, map[string]any{
				"success": true,
				"data": map[string]any{
					"id": "app-1", "sessionId": "se1", "instructorId": "inst-1", "status": "pending",
					"session": map[string]any{"id": "se1", "scheduleId": "s1", "startTime": "09:00", "endTime": "10:00", "trainingType": "class"},
				},
			})
		case r.Method == http.MethodDelete && r.URL.Path == "/api/applications/app-1":
			writeJSON(t, w, http.StatusOK, map[string]any{"success": true})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	app, err := client.ApplyForSession(context.Background(), "se1")
	if err != nil {
		t.Fatalf("ApplyForSession returned error: %v", err)
	}
	if app.Status != application.ApplicationPending || app.Session.ID != "se1" {
		t.Fatalf("unexpected application: %+v", app)
	}
	if err := client.CancelApplication(context.Background(), "app-1"); err != nil {
		t.Fatalf("CancelApplication returned error: %v", err)
	}
}

func TestClient_Login(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var creds application.LoginCredentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected JSON content type")
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"user":  map[string]string{"id": "1", "username": creds.Username, "role": "admin"},
			"token": "tok",
		})
	})

	res, err := client.Login(context.Background(), application.LoginCredentials{Username: "hanako", Password: "pw"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if res.User.Username != "hanako" || res.User.Role != application.RoleAdmin || res.Token != "tok" {
		t.Fatalf("unexpected auth result: %+v", res)
	}
}

func TestClient_LoginRequiresUserAndToken(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"user": map[string]string{"id": "1"}}})
	})

	_, err := client.Login(context.Background(), application.LoginCredentials{Username: "hanako", Password: "pw"})
	if gErr, ok := AsError(err); !ok || gErr.Code != CodeMalformed {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func TestErrorKindRecognisesGatewayErrors(t *testing.T) {
	t.Parallel()

	if kind := application.ErrorKind(&Error{Code: CodeNetwork, Message: "down"}); kind != "remote" {
		t.Fatalf("expected remote kind, got %q", kind)
	}
}
