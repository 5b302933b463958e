package handlers_test

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"campusfound/internal/db"
	"campusfound/internal/middleware"
	"campusfound/internal/models"
	"campusfound/internal/router"
	"campusfound/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// templateNames must cover every view the handlers render.
var templateNames = []string{
	"auth/login.html", "auth/register.html",
	"item/list.html", "item/detail.html", "item/create.html", "item/edit.html", "item/delete.html",
	"claim/list.html", "claim/detail.html", "claim/create.html", "claim/edit.html", "claim/delete.html",
	"error.html",
}

// testTemplates builds a stub template set so handlers can render without the
// real multitemplate views.
func testTemplates(t *testing.T) *template.Template {
	t.Helper()
	tmpl := template.New("root")
	for _, name := range templateNames {
		_, err := tmpl.New(name).Parse(`{{ .Title }}{{ if .Error }} error: {{ .Error }}{{ end }}{{ with .CurrentUser }} viewer: {{ .Username }}{{ end }}`)
		require.NoError(t, err)
	}
	return tmpl
}

// newTestRouter wires the real routes against an in-memory database.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("UPLOAD_DIR", t.TempDir())

	db.NewTestDB(t)
	utils.GetCache().Purge()

	r := gin.New()
	store := cookie.NewStore([]byte("test-secret"))
	r.Use(sessions.Sessions("test_session", store))
	r.SetHTMLTemplate(testTemplates(t))
	r.Use(middleware.LoadUser())
	router.RegisterRoutes(r)

	// Test-only login endpoint: establishes a session for the given user id.
	r.GET("/_test/login/:id", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set("user_id", utils.StringToUint(c.Param("id")))
		session.Save()
		c.Status(http.StatusNoContent)
	})

	return r
}

func createUser(t *testing.T, username, role string) *models.User {
	t.Helper()
	hash, err := utils.HashPassword("password123")
	require.NoError(t, err)
	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hash,
		Role:     role,
	}
	require.NoError(t, db.DB.Create(&user).Error)
	return &user
}

func createRefs(t *testing.T) (models.Category, models.Location) {
	t.Helper()
	cat := models.Category{Name: "Electronics"}
	loc := models.Location{Name: "Library"}
	require.NoError(t, db.DB.Create(&cat).Error)
	require.NoError(t, db.DB.Create(&loc).Error)
	return cat, loc
}

func createItem(t *testing.T, owner *models.User, status models.ItemStatus) *models.ItemReport {
	t.Helper()
	cat, loc := createRefs(t)
	item := models.ItemReport{
		OwnerID:      &owner.ID,
		Type:         models.ReportTypeLost,
		Title:        "Black umbrella",
		CategoryID:   cat.ID,
		LocationID:   loc.ID,
		DateReported: time.Now(),
		Status:       status,
		ContactName:  owner.Username,
		ContactEmail: owner.Email,
	}
	require.NoError(t, db.DB.Create(&item).Error)
	return &item
}

// login returns the session cookie for the given user.
func login(t *testing.T, r *gin.Engine, user *models.User) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/_test/login/"+utils.UintToString(user.ID), nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	for _, c := range w.Result().Cookies() {
		if c.Name == "test_session" {
			return c
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}

func doGET(r *gin.Engine, path string, session *http.Cookie) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", path, nil)
	if session != nil {
		req.AddCookie(session)
	}
	r.ServeHTTP(w, req)
	return w
}

func doPOST(r *gin.Engine, path string, form url.Values, session *http.Cookie) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if session != nil {
		req.AddCookie(session)
	}
	r.ServeHTTP(w, req)
	return w
}
