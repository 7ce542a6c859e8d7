package reporting

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/platform-api/config"
)

func TestInit_DisabledWithoutDSN(t *testing.T) {
	enabled, err := Init(&config.AppConfig{})
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestInit_RejectsMalformedDSN(t *testing.T) {
	_, err := Init(&config.AppConfig{SentryDSN: "not a dsn"})
	assert.Error(t, err)
}

func TestCapture_WithoutHubIsNoop(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/x", func(c *gin.Context) {
		Capture(c, errors.New("boom"))
		Capture(c, nil)
		c.Status(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestMiddleware_AttachesHub(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware())
	router.GET("/x", func(c *gin.Context) {
		Capture(c, errors.New("boom"))
		c.Status(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}
