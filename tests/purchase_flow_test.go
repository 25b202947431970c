package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mansoorceksport/mediakart/internal/config"
	"github.com/mansoorceksport/mediakart/internal/server"
	"github.com/mansoorceksport/mediakart/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchaseFlow(t *testing.T) {
	// 1. Setup Infrastructure
	db, cleanupDB := SetupTestDB(t)
	defer cleanupDB()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	defer redisClient.Close()

	cfg := &config.Config{}
	cfg.Server.MaxUploadSizeMB = 10
	cfg.JWT.Secret = "test-secret-key-123"
	cfg.Cart.StashTTL = 30 * time.Minute

	// 2. Initialize App with a mock gateway and log mailer
	app := server.NewApp(server.AppDependencies{
		Config:      cfg,
		MongoDB:     db,
		RedisClient: redisClient,
		Provider:    &service.MockPaymentProvider{},
		Mailer:      &service.LogMailer{},
	})

	adminToken := MakeToken(t, cfg.JWT.Secret, "admin-1", "admin")
	customerToken := MakeToken(t, cfg.JWT.Secret, "customer-1", "customer")

	request := func(method, path, token string, body interface{}) *http.Response {
		var bodyReader io.Reader
		if body != nil {
			jsonBytes, _ := json.Marshal(body)
			bodyReader = bytes.NewReader(jsonBytes)
		}
		req, _ := http.NewRequest(method, path, bodyReader)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	decode := func(resp *http.Response) map[string]interface{} {
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		return payload
	}

	// ==========================================
	// STEP 1: Admin builds a purchasable folder with two tracks
	// ==========================================
	resp := request("POST", "/v1/admin/catalog/audio/folders", adminToken, map[string]interface{}{
		"name":           "Beats Pack",
		"base_price":     500,
		"discount_price": 400,
		"is_purchasable": true,
	})
	require.Equal(t, 201, resp.StatusCode)
	folderID := decode(resp)["data"].(map[string]interface{})["id"].(string)
	require.NotEmpty(t, folderID)

	itemIDs := make([]string, 0, 2)
	for i, price := range []float64{300, 200} {
		resp = request("POST", "/v1/admin/catalog/audio/items", adminToken, map[string]interface{}{
			"title":      fmt.Sprintf("Track %d", i+1),
			"folder_id":  folderID,
			"base_price": price,
		})
		require.Equal(t, 201, resp.StatusCode)
		itemIDs = append(itemIDs, decode(resp)["data"].(map[string]interface{})["id"].(string))
	}

	// customers cannot reach the admin surface
	resp = request("POST", "/v1/admin/catalog/audio/folders", customerToken, map[string]interface{}{
		"name": "nope",
	})
	assert.Equal(t, 403, resp.StatusCode)

	// ==========================================
	// STEP 2: Public browse shows the folder
	// ==========================================
	resp = request("GET", "/v1/catalog/audio/browse?folder_id="+folderID, "", nil)
	require.Equal(t, 200, resp.StatusCode)
	browseData := decode(resp)["data"].(map[string]interface{})
	assert.Len(t, browseData["items"], 2)
	path := browseData["path"].([]interface{})
	require.Len(t, path, 1)
	assert.Equal(t, "Beats Pack", path[0].(map[string]interface{})["name"])

	// ==========================================
	// STEP 3: Customer checks out the folder
	// ==========================================
	resp = request("POST", "/v1/checkout", customerToken, map[string]interface{}{
		"lines": []map[string]interface{}{
			{"type": "folder", "kind": "audio", "source_id": folderID},
		},
	})
	require.Equal(t, 200, resp.StatusCode)
	checkoutData := decode(resp)["data"].(map[string]interface{})
	assert.Equal(t, 400.0, checkoutData["total"]) // discounted folder price
	correlationID := checkoutData["correlation_id"].(string)
	orderToken := checkoutData["order_token"].(string)
	require.NotEmpty(t, correlationID)

	// ==========================================
	// STEP 4: Confirm payment
	// ==========================================
	confirmBody := map[string]interface{}{
		"correlation_id": correlationID,
		"order_token":    orderToken,
		"payment_id":     "pay_e2e_1",
		"signature":      "mock",
	}
	resp = request("POST", "/v1/checkout/confirm", customerToken, confirmBody)
	require.Equal(t, 200, resp.StatusCode)
	purchaseData := decode(resp)["data"].(map[string]interface{})
	assert.Equal(t, 400.0, purchaseData["total_amount"])
	assert.Equal(t, "customer-1", purchaseData["user_id"])

	// replaying the confirmation must not double-sell
	resp = request("POST", "/v1/checkout/confirm", customerToken, confirmBody)
	assert.Equal(t, 410, resp.StatusCode)

	// ==========================================
	// STEP 5: Library contains the frozen item set
	// ==========================================
	resp = request("GET", "/v1/library", customerToken, nil)
	require.Equal(t, 200, resp.StatusCode)
	libraryData := decode(resp)["data"].(map[string]interface{})
	gotItemIDs := libraryData["item_ids"].([]interface{})
	assert.ElementsMatch(t, []interface{}{itemIDs[0], itemIDs[1]}, gotItemIDs)
	assert.Len(t, libraryData["folder_grants"], 1)

	// a track added after the purchase stays locked
	resp = request("POST", "/v1/admin/catalog/audio/items", adminToken, map[string]interface{}{
		"title":      "Track 3",
		"folder_id":  folderID,
		"base_price": 100,
	})
	require.Equal(t, 201, resp.StatusCode)
	lateItemID := decode(resp)["data"].(map[string]interface{})["id"].(string)

	resp = request("GET", "/v1/library/access/item/"+lateItemID, customerToken, nil)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, false, decode(resp)["data"].(map[string]interface{})["allowed"])

	resp = request("GET", "/v1/library/access/item/"+itemIDs[0], customerToken, nil)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, true, decode(resp)["data"].(map[string]interface{})["allowed"])

	// ==========================================
	// STEP 6: Purchase history
	// ==========================================
	resp = request("GET", "/v1/purchases", customerToken, nil)
	require.Equal(t, 200, resp.StatusCode)
	assert.Len(t, decode(resp)["data"], 1)
}

func TestCouponFlow(t *testing.T) {
	db, cleanupDB := SetupTestDB(t)
	defer cleanupDB()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()

	cfg := &config.Config{}
	cfg.Server.MaxUploadSizeMB = 10
	cfg.JWT.Secret = "test-secret-key-123"
	cfg.Cart.StashTTL = 30 * time.Minute

	app := server.NewApp(server.AppDependencies{
		Config:      cfg,
		MongoDB:     db,
		RedisClient: redisClient,
		Provider:    &service.MockPaymentProvider{},
		Mailer:      &service.LogMailer{},
	})

	adminToken := MakeToken(t, cfg.JWT.Secret, "admin-1", "admin")

	request := func(method, path, token string, body interface{}) *http.Response {
		var bodyReader io.Reader
		if body != nil {
			jsonBytes, _ := json.Marshal(body)
			bodyReader = bytes.NewReader(jsonBytes)
		}
		req, _ := http.NewRequest(method, path, bodyReader)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	decode := func(resp *http.Response) map[string]interface{} {
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		return payload
	}

	resp := request("POST", "/v1/admin/coupons/", adminToken, map[string]interface{}{
		"code":                "save10",
		"discount_type":       "percentage",
		"value":               10,
		"min_order_value":     100,
		"max_discount_amount": 50,
		"is_active":           true,
	})
	require.Equal(t, 201, resp.StatusCode)
	couponData := decode(resp)["data"].(map[string]interface{})
	assert.Equal(t, "SAVE10", couponData["code"]) // stored uppercase
	couponID := couponData["id"].(string)

	// duplicate code is rejected
	resp = request("POST", "/v1/admin/coupons/", adminToken, map[string]interface{}{
		"code":          "SAVE10",
		"discount_type": "fixed",
		"value":         5,
	})
	assert.Equal(t, 409, resp.StatusCode)

	// public validation applies the cap
	resp = request("POST", "/v1/coupons/validate", "", map[string]interface{}{
		"code":        "save10",
		"order_value": 1000,
	})
	require.Equal(t, 200, resp.StatusCode)
	validateData := decode(resp)["data"].(map[string]interface{})
	assert.Equal(t, 50.0, validateData["discount"])
	assert.Equal(t, 950.0, validateData["total"])

	// below the minimum order the code is rejected with a reason
	resp = request("POST", "/v1/coupons/validate", "", map[string]interface{}{
		"code":        "SAVE10",
		"order_value": 50,
	})
	require.Equal(t, 422, resp.StatusCode)
	assert.Equal(t, "below_min_order", decode(resp)["code"])

	// deactivating flips the first failing check
	resp = request("PUT", "/v1/admin/coupons/"+couponID+"/deactivate", adminToken, nil)
	require.Equal(t, 200, resp.StatusCode)

	resp = request("POST", "/v1/coupons/validate", "", map[string]interface{}{
		"code":        "SAVE10",
		"order_value": 1000,
	})
	require.Equal(t, 422, resp.StatusCode)
	assert.Equal(t, "inactive", decode(resp)["code"])
}
