package httpapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowsync/rowsync/internal/config"
	"github.com/rowsync/rowsync/internal/engine"
	"github.com/rowsync/rowsync/internal/httpapi"
	"github.com/rowsync/rowsync/internal/oplog"
	"github.com/rowsync/rowsync/internal/store"
	"github.com/rowsync/rowsync/internal/testutil"
)

const ingestBody = `[
  {
    "invoice_details": {
      "serial_number": "INV-1",
      "total_quantity": 2,
      "total_tax_amount": 6,
      "total_amount": 46,
      "date": "2024-03-01"
    },
    "customer": {
      "customer_name": "Jane Doe",
      "phone_number": "555-0101",
      "total_purchase_amount": 46
    },
    "products": [
      {
        "name": "Pen",
        "quantity": 2,
        "unit_price": 20,
        "tax": "15%",
        "price_with_tax": 46
      }
    ]
  }
]`

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := oplog.Open()
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	e := engine.New(store.New(), log, testutil.NewSequentialIDs("h"))
	cfg := &config.Config{}
	cfg.App.Name = "rowsync-test"
	cfg.CORS.AllowedOrigins = []string{"*"}
	cfg.CORS.AllowedMethods = []string{"GET", "POST", "PATCH", "DELETE"}
	cfg.CORS.AllowedHeaders = []string{"Content-Type"}
	return httpapi.New(e, cfg).Router()
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var rdr *strings.Reader
	if body == "" {
		rdr = strings.NewReader("")
	} else {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)
	w := do(router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rowsync-test")
}

func TestIngestAndList(t *testing.T) {
	router := newTestRouter(t)

	w := do(router, http.MethodPost, "/api/ingest", ingestBody)
	require.Equal(t, http.StatusOK, w.Code)

	var rep engine.IngestReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	assert.Equal(t, 1, rep.Invoices)
	assert.Equal(t, 1, rep.NewProducts)
	assert.Equal(t, 1, rep.NewCustomers)

	w = do(router, http.MethodGet, "/api/collections/invoices", "")
	require.Equal(t, http.StatusOK, w.Code)
	var listing struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Equal(t, 1, listing.Count)
}

func TestIngestRejectsMalformedBatch(t *testing.T) {
	router := newTestRouter(t)

	w := do(router, http.MethodPost, "/api/ingest", `{"not":"a list"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(router, http.MethodGet, "/api/counts", "")
	assert.JSONEq(t, `{"invoices":0,"products":0,"customers":0}`, w.Body.String())
}

func TestEditCellCascades(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusOK, do(router, http.MethodPost, "/api/ingest", ingestBody).Code)

	// h-1 customer, h-2 product, h-3 invoice.
	w := do(router, http.MethodPatch, "/api/collections/products/h-2",
		`{"field":"unit_price","value":"30"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var rep engine.EditReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	assert.True(t, rep.Applied)
	assert.Equal(t, 3, rep.Propagated)
}

func TestEditErrors(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusOK, do(router, http.MethodPost, "/api/ingest", ingestBody).Code)

	w := do(router, http.MethodPatch, "/api/collections/products/nope",
		`{"field":"unit_price","value":"30"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodPatch, "/api/collections/products/h-2",
		`{"field":"id","value":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPatch, "/api/collections/orders/h-2",
		`{"field":"unit_price","value":"30"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodPatch, "/api/collections/products/h-2", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClearCollection(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusOK, do(router, http.MethodPost, "/api/ingest", ingestBody).Code)

	w := do(router, http.MethodDelete, "/api/collections/products", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(router, http.MethodGet, "/api/collections/products", "")
	var listing struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Equal(t, 0, listing.Count)

	// Dangling product references resolve to an empty linked list.
	w = do(router, http.MethodGet, "/api/invoices/h-3/products", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Equal(t, 0, listing.Count)
}

func TestInvoiceProductsNotFound(t *testing.T) {
	router := newTestRouter(t)
	w := do(router, http.MethodGet, "/api/invoices/nope/products", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChangelog(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusOK, do(router, http.MethodPost, "/api/ingest", ingestBody).Code)

	w := do(router, http.MethodGet, "/api/changelog", "")
	require.Equal(t, http.StatusOK, w.Code)
	var listing struct {
		Count   int           `json:"count"`
		Entries []oplog.Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Equal(t, 3, listing.Count)
	assert.Equal(t, oplog.OriginIngest, listing.Entries[0].Origin)

	w = do(router, http.MethodGet, "/api/changelog?after=2", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Equal(t, 1, listing.Count)

	w = do(router, http.MethodGet, "/api/changelog?after=x", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFlagged(t *testing.T) {
	router := newTestRouter(t)
	body := strings.Replace(ingestBody, `"phone_number": "555-0101",`, "", 1)
	require.Equal(t, http.StatusOK, do(router, http.MethodPost, "/api/ingest", body).Code)

	w := do(router, http.MethodGet, "/api/flagged", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Missing phone number")
}
