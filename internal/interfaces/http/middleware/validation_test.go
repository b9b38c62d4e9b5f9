package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Reference string          `json:"reference" binding:"required,max=5"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required,gt=0"`
	Channel   string          `json:"channel" binding:"omitempty,oneof=email whatsapp"`
}

func TestValidationErrors(t *testing.T) {
	SetupValidator()

	r := gin.New()
	r.Use(RequestID())
	r.POST("/test", func(c *gin.Context) {
		var req sampleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	send := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body)))
		return w
	}

	assert.Equal(t, http.StatusOK, send(`{"reference":"CAR","quantity":"2.5"}`).Code)

	w := send(`{"reference":"CARRARA","quantity":"-1","channel":"fax"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	info := decodeError(t, w)
	assert.Equal(t, "ERR_VALIDATION", info.Code)

	fields := map[string]string{}
	for _, d := range info.Details {
		fields[d.Field] = d.Message
	}
	assert.Equal(t, "Must be at most 5 characters", fields["reference"])
	assert.Equal(t, "Must be greater than 0", fields["quantity"])
	assert.Equal(t, "Must be one of: email whatsapp", fields["channel"])
}
