package services

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shelterfund/backend/internal/models"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthConfig() {
	viper.Set("argon2.salt_length", 16)
	viper.Set("argon2.time", 1)
	viper.Set("argon2.memory", 64*1024)
	viper.Set("argon2.threads", 4)
	viper.Set("argon2.key_length", 32)
	viper.Set("jwt.secret_key", "test-secret")
	viper.Set("jwt.expiry_hours", 24)
}

func TestAuthService_Register(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	setupAuthConfig()
	service := NewAuthService(db, nil)

	t.Run("successful registration", func(t *testing.T) {
		req := RegisterRequest{
			Email:       "Adaeze@Example.com",
			Password:    "password123",
			FirstName:   "Adaeze",
			LastName:    "Okafor",
			PhoneNumber: "+2348012345678",
			BVN:         "22123456789",
			NIN:         "12345678901",
		}

		mock.ExpectQuery("INSERT INTO users").
			WithArgs("adaeze@example.com", sqlmock.AnyArg(), req.FirstName, req.LastName,
				req.PhoneNumber, req.BVN, req.NIN, models.RoleApplicant).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		body, _ := json.Marshal(req)
		r := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Register(w, r)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var response AuthResponse
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.NotEmpty(t, response.Token)
		// Stored and returned email is the canonical lowercase form.
		assert.Equal(t, "adaeze@example.com", response.User.Email)
		assert.Equal(t, models.RoleApplicant, response.User.Role)
	})

	t.Run("invalid request body", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer([]byte("invalid")))
		w := httptest.NewRecorder()

		service.Register(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("short BVN fails validation", func(t *testing.T) {
		body, _ := json.Marshal(RegisterRequest{
			Email:       "adaeze@example.com",
			Password:    "password123",
			FirstName:   "Adaeze",
			LastName:    "Okafor",
			PhoneNumber: "+2348012345678",
			BVN:         "12345",
			NIN:         "12345678901",
		})
		r := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Register(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("duplicate email reports conflict", func(t *testing.T) {
		req := RegisterRequest{
			Email:       "taken@example.com",
			Password:    "password123",
			FirstName:   "Adaeze",
			LastName:    "Okafor",
			PhoneNumber: "+2348012345678",
			BVN:         "22123456789",
			NIN:         "12345678901",
		}

		mock.ExpectQuery("INSERT INTO users").
			WillReturnError(sql.ErrConnDone)

		body, _ := json.Marshal(req)
		r := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Register(w, r)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestAuthService_Login(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	setupAuthConfig()
	service := NewAuthService(db, nil)

	userColumns := []string{"id", "email", "first_name", "last_name", "phone_number", "password", "role"}

	t.Run("successful login", func(t *testing.T) {
		hashed, err := hashPassword("password123")
		require.NoError(t, err)

		mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
			WithArgs("adaeze@example.com").
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow(1, "adaeze@example.com", "Adaeze", "Okafor", "+2348012345678", hashed, models.RoleApplicant))

		body := []byte(`{"email":"Adaeze@Example.com","password":"password123"}`)
		r := httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Login(w, r)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var response AuthResponse
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.NotEmpty(t, response.Token)
		assert.Equal(t, 1, response.User.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		hashed, err := hashPassword("password123")
		require.NoError(t, err)

		mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
			WithArgs("adaeze@example.com").
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow(1, "adaeze@example.com", "Adaeze", "Okafor", "+2348012345678", hashed, models.RoleApplicant))

		body := []byte(`{"email":"adaeze@example.com","password":"wrong-password"}`)
		r := httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Login(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown email", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
			WithArgs("nobody@example.com").
			WillReturnError(sql.ErrNoRows)

		body := []byte(`{"email":"nobody@example.com","password":"password123"}`)
		r := httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Login(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestPasswordHashing(t *testing.T) {
	setupAuthConfig()

	t.Run("round trip verifies", func(t *testing.T) {
		hashed, err := hashPassword("s3cret-password")
		require.NoError(t, err)
		assert.True(t, verifyPassword("s3cret-password", hashed))
		assert.False(t, verifyPassword("other-password", hashed))
	})

	t.Run("same password hashes differently", func(t *testing.T) {
		a, err := hashPassword("s3cret-password")
		require.NoError(t, err)
		b, err := hashPassword("s3cret-password")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("malformed stored hash never verifies", func(t *testing.T) {
		assert.False(t, verifyPassword("anything", "not-a-valid-hash"))
		assert.False(t, verifyPassword("anything", ""))
	})
}

func TestGenerateJWT(t *testing.T) {
	setupAuthConfig()

	token, err := generateJWT(42, models.RoleAdmin)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}
