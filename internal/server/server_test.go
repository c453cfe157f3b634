package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	branchdomain "github.com/smallbiznis/mercato/internal/branch/domain"
	branchrepository "github.com/smallbiznis/mercato/internal/branch/repository"
	branchservice "github.com/smallbiznis/mercato/internal/branch/service"
	"github.com/smallbiznis/mercato/internal/cache"
	"github.com/smallbiznis/mercato/internal/clock"
	"github.com/smallbiznis/mercato/internal/config"
	fiscaldomain "github.com/smallbiznis/mercato/internal/fiscal/domain"
	fiscalrepository "github.com/smallbiznis/mercato/internal/fiscal/repository"
	fiscalservice "github.com/smallbiznis/mercato/internal/fiscal/service"
	plandomain "github.com/smallbiznis/mercato/internal/plan/domain"
	planrepository "github.com/smallbiznis/mercato/internal/plan/repository"
	planservice "github.com/smallbiznis/mercato/internal/plan/service"
	"github.com/smallbiznis/mercato/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestServer(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&fiscaldomain.FiscalConfiguration{},
		&plandomain.Plan{},
		&branchdomain.Branch{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	limiter, err := ratelimit.NewTaxCalcLimiter(config.Config{})
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	NewServer(ServerParams{
		Gin:   engine,
		Cfg:   config.Config{},
		DB:    db,
		GenID: node,
		FiscalSvc: fiscalservice.NewService(fiscalservice.Params{
			Log:   log,
			GenID: node,
			Clock: fakeClock,
			Repo:  fiscalrepository.NewRepository(db),
			Cache: cache.NewFiscalConfigCache(),
		}),
		PlanSvc: planservice.New(planservice.Params{
			DB: db, Log: log, GenID: node, Clock: fakeClock, Repo: planrepository.Provide(),
		}),
		BranchSvc: branchservice.New(branchservice.Params{
			DB: db, Log: log, GenID: node, Clock: fakeClock, Repo: branchrepository.Provide(),
		}),
		TaxLimiter: limiter,
	})

	return engine, node.Generate().String()
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func createConfigBody() map[string]any {
	return map[string]any{
		"fiscal_service": "basic_tax",
		"standard_rate":  18,
		"regions": []map[string]any{
			{"country": "Peru", "state_region": "Lima", "tax_type": "vat", "collects_tax": true, "standard_rate": 18},
			{"country": "United States", "state_region": "Oregon", "tax_type": "sales_tax", "collects_tax": false},
		},
	}
}

func TestHTTP_FiscalConfigurationLifecycle(t *testing.T) {
	engine, storeID := newTestServer(t)
	base := "/v1/stores/" + storeID + "/fiscal-configuration"

	w := doJSON(t, engine, http.MethodPost, base, createConfigBody())
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, engine, http.MethodPost, base, createConfigBody())
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, engine, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Data fiscaldomain.Response `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, storeID, payload.Data.StoreID)
	assert.Len(t, payload.Data.Regions, 2)

	w = doJSON(t, engine, http.MethodPatch, base, map[string]any{"standard_rate": 21})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, engine, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, engine, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHTTP_InvalidStoreID(t *testing.T) {
	engine, _ := newTestServer(t)

	w := doJSON(t, engine, http.MethodGet, "/v1/stores/not-a-store/fiscal-configuration", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHTTP_ViolationPayload(t *testing.T) {
	engine, storeID := newTestServer(t)
	base := "/v1/stores/" + storeID + "/fiscal-configuration"

	w := doJSON(t, engine, http.MethodPost, base, createConfigBody())
	require.Equal(t, http.StatusCreated, w.Code)

	// Out-of-range rate surfaces field and machine code.
	w = doJSON(t, engine, http.MethodPost, base+"/regions", map[string]any{
		"country": "Germany", "tax_type": "vat", "collects_tax": true, "standard_rate": 150,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var payload struct {
		Error struct {
			Type   string `json:"type"`
			Errors []struct {
				Field string `json:"field"`
				Code  string `json:"code"`
			} `json:"errors"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "validation_error", payload.Error.Type)
	require.Len(t, payload.Error.Errors, 1)
	assert.Equal(t, "out_of_range_rate", payload.Error.Errors[0].Code)

	// Duplicate natural key maps to conflict.
	w = doJSON(t, engine, http.MethodPost, base+"/regions", map[string]any{
		"country": "peru", "state_region": "LIMA", "tax_type": "vat", "collects_tax": true, "standard_rate": 18,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHTTP_CalculateTax(t *testing.T) {
	engine, storeID := newTestServer(t)
	base := "/v1/stores/" + storeID

	w := doJSON(t, engine, http.MethodPost, base+"/fiscal-configuration", createConfigBody())
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, engine, http.MethodPost, base+"/tax/calculate", map[string]any{
		"amount": 100, "country": "Peru", "state_region": "Lima",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Data fiscaldomain.CalculateTaxResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.InDelta(t, 18.0, payload.Data.Tax, 1e-9)

	w = doJSON(t, engine, http.MethodPost, base+"/tax/calculate", map[string]any{
		"amount": -5, "country": "Peru", "state_region": "Lima",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHTTP_Plans(t *testing.T) {
	engine, storeID := newTestServer(t)
	base := "/v1/stores/" + storeID + "/plans"

	w := doJSON(t, engine, http.MethodPost, base, map[string]any{
		"code": "starter", "name": "Starter", "interval": "monthly", "price_cents": 2900,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, engine, http.MethodPost, base, map[string]any{
		"code": "starter", "name": "Starter", "interval": "monthly",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, engine, http.MethodGet, base+"?interval=monthly", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Data []plandomain.Response `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Len(t, payload.Data, 1)
	assert.Equal(t, "starter", payload.Data[0].Code)
}

func TestHTTP_Branches(t *testing.T) {
	engine, storeID := newTestServer(t)
	base := "/v1/stores/" + storeID + "/branches"

	w := doJSON(t, engine, http.MethodPost, base, map[string]any{
		"name": "Lima Centro", "country": "Peru",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data branchdomain.Response `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.True(t, created.Data.IsDefault)

	// Default branch cannot be deleted.
	w = doJSON(t, engine, http.MethodDelete, base+"/"+created.Data.ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}
