package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/marmoleria/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogHandler(t *testing.T) {
	h := NewCatalogHandler(testutil.SampleCatalog(t))

	t.Run("lists products", func(t *testing.T) {
		testutil.RunHTTPTestCase(t, h.ListProducts, testutil.HTTPTestCase{
			ExpectedStatus: http.StatusOK,
			Validate: func(t *testing.T, tc *testutil.TestContext) {
				testutil.AssertSuccessResponse(t, tc)
				resp := testutil.JSONResponseAs[struct {
					Data []ProductResponse `json:"data"`
				}](t, tc)
				require.Len(t, resp.Data, 5)
				for _, p := range resp.Data {
					assert.NotEmpty(t, p.Reference)
					assert.True(t, p.UnitPrice.IsPositive(), p.Reference)
				}
			},
		})
	})

	t.Run("XL surface reports its format", func(t *testing.T) {
		testutil.RunHTTPTestCase(t, h.GetProduct, testutil.HTTPTestCase{
			Setup: func(_ *testing.T, tc *testutil.TestContext) {
				tc.Context.Params = gin.Params{{Key: "reference", Value: testutil.TravertinoXL}}
			},
			ExpectedStatus: http.StatusOK,
			Validate: func(t *testing.T, tc *testutil.TestContext) {
				p := testutil.JSONResponse(t, tc)["data"].(map[string]any)
				assert.Equal(t, "XL", p["format"])
				assert.Equal(t, "COP", p["currency"])
			},
		})
	})

	t.Run("supplies have no format", func(t *testing.T) {
		testutil.RunHTTPTestCase(t, h.GetProduct, testutil.HTTPTestCase{
			Setup: func(_ *testing.T, tc *testutil.TestContext) {
				tc.Context.Params = gin.Params{{Key: "reference", Value: testutil.Pegante}}
			},
			ExpectedStatus: http.StatusOK,
			Validate: func(t *testing.T, tc *testutil.TestContext) {
				p := testutil.JSONResponse(t, tc)["data"].(map[string]any)
				assert.NotContains(t, p, "format")
				assert.Equal(t, "bulto", p["unit"])
			},
		})
	})

	t.Run("unknown reference", func(t *testing.T) {
		testutil.RunHTTPTestCase(t, h.GetProduct, testutil.HTTPTestCase{
			Setup: func(_ *testing.T, tc *testutil.TestContext) {
				tc.Context.Params = gin.Params{{Key: "reference", Value: "Granito"}}
			},
			ExpectedStatus: http.StatusUnprocessableEntity,
			Validate: func(t *testing.T, tc *testutil.TestContext) {
				testutil.AssertErrorResponse(t, tc, "ERR_UNKNOWN_REFERENCE")
			},
		})
	})
}
