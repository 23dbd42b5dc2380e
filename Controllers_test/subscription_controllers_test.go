package Controllers_test

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/smartcommerce/notification-service/controllers"
)

func setupSubscriptionRouter(env *testEnv, userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.Default()
	router.Use(authAs(userID))
	subCtrl := controllers.NewSubscriptionController(env.store)
	router.POST("/subscriptions", subCtrl.RegisterSubscription)
	router.GET("/subscriptions", subCtrl.ListSubscriptions)
	router.DELETE("/subscriptions/:sub_id", subCtrl.DeactivateSubscription)
	return router
}

func TestSubscriptionLifecycle(t *testing.T) {
	env := setupEnv(t)
	router := setupSubscriptionRouter(env, 8)

	w := doJSON(router, "POST", "/subscriptions", map[string]interface{}{
		"platform":  "web",
		"device_id": "device-1",
		"endpoint":  "https://push.example.com/ep1",
		"auth_keys": map[string]interface{}{"p256dh": "k1", "auth": "a1"},
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	// Same device registers again: the old row is superseded, not kept live.
	w = doJSON(router, "POST", "/subscriptions", map[string]interface{}{
		"platform":  "web",
		"device_id": "device-1",
		"endpoint":  "https://push.example.com/ep2",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, "GET", "/subscriptions", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	subs := resp["data"].([]interface{})
	assert.Len(t, subs, 1)
	sub := subs[0].(map[string]interface{})
	assert.Equal(t, "https://push.example.com/ep2", sub["endpoint"])

	subID := int(sub["id"].(float64))
	w = doJSON(router, "DELETE", "/subscriptions/"+strconv.Itoa(subID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, "GET", "/subscriptions", nil)
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp["data"])
}

func TestDeactivateSubscriptionOwnership(t *testing.T) {
	env := setupEnv(t)
	owner := setupSubscriptionRouter(env, 8)
	stranger := setupSubscriptionRouter(env, 9)

	w := doJSON(owner, "POST", "/subscriptions", map[string]interface{}{
		"platform":  "android",
		"device_id": "device-2",
		"endpoint":  "https://push.example.com/ep3",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	subID := int(resp["data"].(map[string]interface{})["id"].(float64))

	w = doJSON(stranger, "DELETE", "/subscriptions/"+strconv.Itoa(subID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
