package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/linen-ops-api/config"
	"github.com/kendall-kelly/linen-ops-api/middleware"
	"github.com/kendall-kelly/linen-ops-api/models"
	"github.com/kendall-kelly/linen-ops-api/services"
	"github.com/kendall-kelly/linen-ops-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// setupMockAuth0Server simulates Auth0's /userinfo endpoint, keyed by access token
func setupMockAuth0Server(userInfoMap map[string]*services.Auth0UserInfo) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/userinfo" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		authHeader := r.Header.Get("Authorization")
		if len(authHeader) < 7 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		userInfo, exists := userInfoMap[authHeader[7:]]
		if !exists {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(userInfo)
	}))
}

// mockAuthMiddleware sets up the context the way EnsureValidToken does
func mockAuthMiddleware(auth0ID, role, accessToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", auth0ID)
		c.Set("access_token", accessToken)
		c.Set("validated_claims", &validator.ValidatedClaims{
			CustomClaims: &middleware.CustomClaims{Role: role},
		})
		c.Next()
	}
}

// useAuth0Server points the Auth0 domain at server for the test
func useAuth0Server(t *testing.T, server *httptest.Server) {
	original := config.GetConfig()
	config.SetConfig(&config.Config{Auth0Domain: server.URL, Timezone: "UTC"})
	t.Cleanup(func() { config.SetConfig(original) })
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return response
}

func TestCreateUser(t *testing.T) {
	tests := []struct {
		name           string
		email          string
		userName       string
		role           string
		expectedStatus int
		expectedCode   string
		expectedRole   string
	}{
		{
			name:           "operator from role claim",
			email:          "omar@laundry.example",
			userName:       "Omar",
			role:           models.RoleOperator,
			expectedStatus: http.StatusCreated,
			expectedRole:   models.RoleOperator,
		},
		{
			name:           "driver from role claim",
			email:          "diego@laundry.example",
			userName:       "Diego",
			role:           models.RoleDriver,
			expectedStatus: http.StatusCreated,
			expectedRole:   models.RoleDriver,
		},
		{
			name:           "missing role defaults to operator",
			email:          "norole@laundry.example",
			userName:       "No Role",
			expectedStatus: http.StatusCreated,
			expectedRole:   models.RoleOperator,
		},
		{
			name:           "unknown role defaults to operator",
			email:          "customer@laundry.example",
			userName:       "Old Customer",
			role:           "customer",
			expectedStatus: http.StatusCreated,
			expectedRole:   models.RoleOperator,
		},
		{
			name:           "missing email",
			userName:       "No Email",
			role:           models.RoleOperator,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "MISSING_EMAIL",
		},
		{
			name:           "missing name",
			email:          "noname@laundry.example",
			role:           models.RoleOperator,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "MISSING_NAME",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.NewTestDB(t)
			server := setupMockAuth0Server(map[string]*services.Auth0UserInfo{
				"token-1": {Sub: "auth0|new", Email: tt.email, Name: tt.userName},
			})
			defer server.Close()
			useAuth0Server(t, server)

			router := setupTestRouter()
			router.POST("/users", mockAuthMiddleware("auth0|new", tt.role, "token-1"), CreateUser)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/users", nil))
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())

			response := decode(t, w)
			if tt.expectedCode != "" {
				assert.False(t, response["success"].(bool))
				assert.Equal(t, tt.expectedCode, response["error"].(map[string]interface{})["code"])
				return
			}
			data := response["data"].(map[string]interface{})
			assert.Equal(t, tt.email, data["email"])
			assert.Equal(t, "auth0|new", data["auth0_id"])
			assert.Equal(t, tt.expectedRole, data["role"])
		})
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	db := testutil.NewTestDB(t)
	existing := testutil.SeedUser(t, db, "auth0|first", "First", models.RoleOperator)

	server := setupMockAuth0Server(map[string]*services.Auth0UserInfo{
		"same-subject": {Sub: "auth0|first", Email: "other@laundry.example", Name: "Again"},
		"same-email":   {Sub: "auth0|second", Email: existing.Email, Name: "Second"},
	})
	defer server.Close()
	useAuth0Server(t, server)

	for subject, token := range map[string]string{"auth0|first": "same-subject", "auth0|second": "same-email"} {
		router := setupTestRouter()
		router.POST("/users", mockAuthMiddleware(subject, models.RoleOperator, token), CreateUser)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/users", nil))

		assert.Equal(t, http.StatusConflict, w.Code, token)
		assert.Equal(t, "USER_EXISTS", decode(t, w)["error"].(map[string]interface{})["code"])
	}
}

func TestCreateUser_Auth0Failure(t *testing.T) {
	testutil.NewTestDB(t)
	server := setupMockAuth0Server(map[string]*services.Auth0UserInfo{})
	defer server.Close()
	useAuth0Server(t, server)

	router := setupTestRouter()
	router.POST("/users", mockAuthMiddleware("auth0|x", "", "unknown-token"), CreateUser)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/users", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "AUTH0_ERROR", decode(t, w)["error"].(map[string]interface{})["code"])
}

// profileRouter serves /users/me for the given subject through LoadUser
func profileRouter(subject string) *gin.Engine {
	router := setupTestRouter()
	auth := func(c *gin.Context) {
		c.Set("user_id", subject)
		c.Next()
	}
	router.GET("/users/me", auth, middleware.LoadUser(), GetMyProfile)
	router.PUT("/users/me", auth, middleware.LoadUser(), UpdateMyProfile)
	return router
}

func TestGetMyProfile(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.SeedUser(t, db, "auth0|omar", "Omar", models.RoleOperator)

	w := httptest.NewRecorder()
	profileRouter("auth0|omar").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/me", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Omar", data["name"])
	assert.Equal(t, models.RoleOperator, data["role"])

	w = httptest.NewRecorder()
	profileRouter("auth0|nobody").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/me", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "USER_NOT_FOUND", decode(t, w)["error"].(map[string]interface{})["code"])
}

func TestUpdateMyProfile(t *testing.T) {
	tests := []struct {
		name           string
		payload        UpdateUserRequest
		expectedStatus int
		expectedCode   string
		expectedName   string
	}{
		{name: "name and email", payload: UpdateUserRequest{Name: "Omar R.", Email: "omar.r@laundry.example"}, expectedStatus: http.StatusOK, expectedName: "Omar R."},
		{name: "empty update", payload: UpdateUserRequest{}, expectedStatus: http.StatusOK, expectedName: "Omar"},
		{name: "invalid email", payload: UpdateUserRequest{Email: "not-an-email"}, expectedStatus: http.StatusBadRequest, expectedCode: "VALIDATION_ERROR"},
		{name: "email taken", payload: UpdateUserRequest{Email: "taken@laundry.example"}, expectedStatus: http.StatusConflict, expectedCode: "EMAIL_EXISTS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.NewTestDB(t)
			testutil.SeedUser(t, db, "auth0|omar", "Omar", models.RoleOperator)
			require.NoError(t, db.Create(&models.User{Auth0ID: "auth0|other", Name: "Other", Email: "taken@laundry.example", Role: models.RoleDriver}).Error)

			body, _ := json.Marshal(tt.payload)
			req := httptest.NewRequest(http.MethodPut, "/users/me", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			profileRouter("auth0|omar").ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			response := decode(t, w)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, response["error"].(map[string]interface{})["code"])
				return
			}
			assert.Equal(t, tt.expectedName, response["data"].(map[string]interface{})["name"])
		})
	}
}

func TestUserAdministration(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.SeedUser(t, db, "auth0|ana", "Ana", models.RoleAdmin)
	driver := testutil.SeedUser(t, db, "auth0|diego", "Diego", models.RoleDriver)

	router := setupTestRouter()
	router.GET("/users", ListUsers)
	router.PUT("/users/:id/role", UpdateUserRole)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users?role=driver", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 1)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users?role=customer", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/users/%d/role", driver.ID), bytes.NewBufferString(`{"role":"operator"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, driver.ID).Error)
	assert.Equal(t, models.RoleOperator, reloaded.Role)

	req = httptest.NewRequest(http.MethodPut, "/users/999/role", bytes.NewBufferString(`{"role":"admin"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
