package middlewares

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/enjoys-in/pinglet-sub002/pkg/auth"
	"github.com/enjoys-in/pinglet-sub002/pkg/models"
)

const testSecret = "0d2ba1eb4fc2712eb02b719a3b4f9e880d2ba1eb4fc2712e"

func newGateRouter(t *testing.T, lookup func(uuid.UUID) (*models.Project, error)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ValidateRequest(&ValidatorConfig{
		Log:    zap.NewNop(),
		Lookup: lookup,
	}))
	r.POST("/api/notify", func(c *gin.Context) {
		project := c.MustGet("project").(*models.Project)
		c.JSON(http.StatusOK, gin.H{"project_id": project.ID.String()})
	})
	return r
}

func knownProject(id uuid.UUID) func(uuid.UUID) (*models.Project, error) {
	return func(got uuid.UUID) (*models.Project, error) {
		if got != id {
			return nil, errors.New("record not found")
		}
		return &models.Project{ID: id, Secret: testSecret}, nil
	}
}

func signedRequest(projectID string, ts time.Time) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/notify", nil)
	stamp := fmt.Sprintf("%d", ts.UnixMilli())
	req.Header.Set("X-Project-ID", projectID)
	req.Header.Set("X-Timestamp", stamp)
	req.Header.Set("X-Pinglet-Signature", auth.Sign([]byte(testSecret), projectID, stamp))
	return req
}

func TestValidateAcceptsSignedRequest(t *testing.T) {
	id := uuid.New()
	r := newGateRouter(t, knownProject(id))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest(id.String(), time.Now()))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
}

func TestValidateRejectsUniformly(t *testing.T) {
	id := uuid.New()

	cases := []struct {
		name string
		req  func() *http.Request
	}{
		{
			name: "missing headers",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/notify", nil)
			},
		},
		{
			name: "missing signature only",
			req: func() *http.Request {
				req := signedRequest(id.String(), time.Now())
				req.Header.Del("X-Pinglet-Signature")
				return req
			},
		},
		{
			name: "unparseable project id",
			req: func() *http.Request {
				return signedRequest("not-a-uuid", time.Now())
			},
		},
		{
			name: "unknown project",
			req: func() *http.Request {
				return signedRequest(uuid.NewString(), time.Now())
			},
		},
		{
			name: "wrong signature",
			req: func() *http.Request {
				req := signedRequest(id.String(), time.Now())
				req.Header.Set("X-Pinglet-Signature", auth.Sign([]byte("some other secret"), id.String(), req.Header.Get("X-Timestamp")))
				return req
			},
		},
		{
			name: "stale timestamp",
			req: func() *http.Request {
				return signedRequest(id.String(), time.Now().Add(-time.Hour))
			},
		},
		{
			name: "future timestamp",
			req: func() *http.Request {
				return signedRequest(id.String(), time.Now().Add(time.Hour))
			},
		},
		{
			name: "garbage timestamp",
			req: func() *http.Request {
				req := signedRequest(id.String(), time.Now())
				req.Header.Set("X-Timestamp", "yesterday")
				return req
			},
		},
	}

	r := newGateRouter(t, knownProject(id))
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, tc.req())
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", w.Code)
			}
			// every rejection looks the same from outside
			if got := w.Body.String(); got != `{"error":"unauthorized"}` {
				t.Errorf("body = %s, want the generic rejection", got)
			}
		})
	}
}

func TestValidateSkipsSignatureForSecretlessProject(t *testing.T) {
	// Projects created before signing was enforced carry no secret; the gate
	// still requires the headers to be present but does not verify them.
	id := uuid.New()
	r := newGateRouter(t, func(uuid.UUID) (*models.Project, error) {
		return &models.Project{ID: id}, nil
	})

	req := httptest.NewRequest(http.MethodPost, "/api/notify", nil)
	req.Header.Set("X-Project-ID", id.String())
	req.Header.Set("X-Timestamp", fmt.Sprintf("%d", time.Now().UnixMilli()))
	req.Header.Set("X-Pinglet-Signature", "anything")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
