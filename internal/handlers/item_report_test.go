package handlers_test

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"campusfound/internal/db"
	"campusfound/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func itemForm(cat models.Category, loc models.Location) url.Values {
	return url.Values{
		"type":          {"1"},
		"title":         {"Black umbrella"},
		"description":   {"Left near the entrance."},
		"category_id":   {fmt.Sprint(cat.ID)},
		"location_id":   {fmt.Sprint(loc.ID)},
		"contact_name":  {"Alice"},
		"contact_email": {"alice@example.com"},
	}
}

func countItems(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.DB.Model(&models.ItemReport{}).Count(&n).Error)
	return n
}

func TestItemList_Public(t *testing.T) {
	r := newTestRouter(t)
	owner := createUser(t, "alice", models.RoleUser)
	createItem(t, owner, models.ItemStatusOpen)

	w := doGET(r, "/items", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestItemList_CacheHitDoesNotLeakViewer(t *testing.T) {
	r := newTestRouter(t)
	owner := createUser(t, "alice", models.RoleUser)
	createItem(t, owner, models.ItemStatusOpen)

	// A logged-in request warms the cache.
	w := doGET(r, "/items", login(t, r, owner))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "viewer: alice")

	// Anonymous cache hits must not inherit the warming user's identity.
	w = doGET(r, "/items", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), "alice")

	// Nor must one logged-in viewer see another.
	other := createUser(t, "bob", models.RoleUser)
	w = doGET(r, "/items", login(t, r, other))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "viewer: bob")
	require.NotContains(t, w.Body.String(), "alice")
}

func TestItemList_ConcurrentCacheHits(t *testing.T) {
	r := newTestRouter(t)
	owner := createUser(t, "alice", models.RoleUser)
	createItem(t, owner, models.ItemStatusOpen)

	w := doGET(r, "/items", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doGET(r, "/items", nil)
		}()
	}
	wg.Wait()
}

func TestItemDetail_NotFound(t *testing.T) {
	r := newTestRouter(t)

	w := doGET(r, "/items/42", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestItemCreate_SetsOwnerAndDefaults(t *testing.T) {
	r := newTestRouter(t)
	user := createUser(t, "alice", models.RoleUser)
	cat, loc := createRefs(t)

	session := login(t, r, user)

	w := doPOST(r, "/items/new", itemForm(cat, loc), session)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/items", w.Header().Get("Location"))

	var item models.ItemReport
	require.NoError(t, db.DB.First(&item).Error)
	require.NotNil(t, item.OwnerID)
	require.Equal(t, user.ID, *item.OwnerID)
	require.Equal(t, models.ItemStatusOpen, item.Status)
	require.Equal(t, models.ReportTypeLost, item.Type)
	require.False(t, item.DateReported.IsZero())
	require.Empty(t, item.PhotoPath)
}

func TestItemCreate_ValidationFailureMutatesNothing(t *testing.T) {
	r := newTestRouter(t)
	user := createUser(t, "alice", models.RoleUser)
	cat, loc := createRefs(t)

	session := login(t, r, user)

	form := itemForm(cat, loc)
	form.Set("title", "")
	w := doPOST(r, "/items/new", form, session)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Title is required")
	require.Equal(t, int64(0), countItems(t))
}

func TestItemCreate_RequiresLogin(t *testing.T) {
	r := newTestRouter(t)
	cat, loc := createRefs(t)

	w := doPOST(r, "/items/new", itemForm(cat, loc), nil)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/login", w.Header().Get("Location"))
	require.Equal(t, int64(0), countItems(t))
}

func TestItemEditDeleteGuards(t *testing.T) {
	tests := []struct {
		name       string
		actor      string // "owner", "stranger", "admin"
		itemStatus models.ItemStatus
		wantCode   int
	}{
		{"stranger cannot edit open item", "stranger", models.ItemStatusOpen, http.StatusForbidden},
		{"stranger cannot edit claimed item", "stranger", models.ItemStatusClaimed, http.StatusForbidden},
		{"owner can edit open item", "owner", models.ItemStatusOpen, http.StatusFound},
		{"owner can edit pending item", "owner", models.ItemStatusPendingClaim, http.StatusFound},
		{"owner cannot edit claimed item", "owner", models.ItemStatusClaimed, http.StatusForbidden},
		{"admin can edit claimed item", "admin", models.ItemStatusClaimed, http.StatusFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(t)
			owner := createUser(t, "alice", models.RoleUser)
			stranger := createUser(t, "mallory", models.RoleUser)
			admin := createUser(t, "admin", models.RoleAdmin)
			item := createItem(t, owner, tc.itemStatus)

			actor := owner
			switch tc.actor {
			case "stranger":
				actor = stranger
			case "admin":
				actor = admin
			}
			session := login(t, r, actor)

			var cat models.Category
			var loc models.Location
			require.NoError(t, db.DB.First(&cat).Error)
			require.NoError(t, db.DB.First(&loc).Error)

			form := itemForm(cat, loc)
			form.Set("title", "Renamed umbrella")
			w := doPOST(r, fmt.Sprintf("/items/%d/edit", item.ID), form, session)
			require.Equal(t, tc.wantCode, w.Code)

			got := reloadItem(t, item.ID)
			if tc.wantCode == http.StatusFound {
				require.Equal(t, "Renamed umbrella", got.Title)
			} else {
				require.Equal(t, "Black umbrella", got.Title)
			}

			// The delete guard is the same rule.
			w = doPOST(r, fmt.Sprintf("/items/%d/delete", item.ID), url.Values{}, session)
			require.Equal(t, tc.wantCode, w.Code)
			if tc.wantCode == http.StatusFound {
				require.Equal(t, int64(0), countItems(t))
			} else {
				require.Equal(t, int64(1), countItems(t))
			}
		})
	}
}

func TestItemEdit_NeverWritesStatus(t *testing.T) {
	r := newTestRouter(t)
	owner := createUser(t, "alice", models.RoleUser)
	item := createItem(t, owner, models.ItemStatusPendingClaim)

	session := login(t, r, owner)

	var cat models.Category
	var loc models.Location
	require.NoError(t, db.DB.First(&cat).Error)
	require.NoError(t, db.DB.First(&loc).Error)

	form := itemForm(cat, loc)
	form.Set("status", "1") // must be ignored
	w := doPOST(r, fmt.Sprintf("/items/%d/edit", item.ID), form, session)
	require.Equal(t, http.StatusFound, w.Code)

	require.Equal(t, models.ItemStatusPendingClaim, reloadItem(t, item.ID).Status)
}

func TestItemDelete_CascadesClaims(t *testing.T) {
	r := newTestRouter(t)
	owner := createUser(t, "alice", models.RoleUser)
	admin := createUser(t, "admin", models.RoleAdmin)
	item := createItem(t, owner, models.ItemStatusPendingClaim)
	createClaim(t, item, models.ClaimStatusNew)

	session := login(t, r, admin)

	w := doPOST(r, fmt.Sprintf("/items/%d/delete", item.ID), url.Values{}, session)
	require.Equal(t, http.StatusFound, w.Code)

	require.Equal(t, int64(0), countItems(t))
	require.Equal(t, int64(0), countClaims(t))
}

func TestItemReopen_AdminOnly(t *testing.T) {
	r := newTestRouter(t)
	owner := createUser(t, "alice", models.RoleUser)
	admin := createUser(t, "admin", models.RoleAdmin)
	item := createItem(t, owner, models.ItemStatusClaimed)

	w := doPOST(r, fmt.Sprintf("/items/%d/reopen", item.ID), url.Values{}, login(t, r, owner))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, models.ItemStatusClaimed, reloadItem(t, item.ID).Status)

	w = doPOST(r, fmt.Sprintf("/items/%d/reopen", item.ID), url.Values{}, login(t, r, admin))
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, models.ItemStatusOpen, reloadItem(t, item.ID).Status)
}

func postMultipartItem(t *testing.T, r *gin.Engine, session *http.Cookie, form url.Values, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for key, vals := range form {
		for _, v := range vals {
			require.NoError(t, mw.WriteField(key, v))
		}
	}

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo"; filename="%s"`, filename))
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/items/new", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(session)
	r.ServeHTTP(w, req)
	return w
}

func TestItemCreate_PhotoRoundTrip(t *testing.T) {
	r := newTestRouter(t)
	user := createUser(t, "alice", models.RoleUser)
	cat, loc := createRefs(t)

	session := login(t, r, user)

	photoBytes := []byte("\x89PNG\r\n\x1a\nfakepixels")
	w := postMultipartItem(t, r, session, itemForm(cat, loc), "umbrella.png", photoBytes)
	require.Equal(t, http.StatusFound, w.Code)

	var item models.ItemReport
	require.NoError(t, db.DB.First(&item).Error)
	require.True(t, strings.HasPrefix(item.PhotoPath, "/uploads/"))
	require.True(t, strings.HasSuffix(item.PhotoPath, ".png"))
	require.NotContains(t, item.PhotoPath, "umbrella") // collision-free generated name

	// The stored file must be retrievable from the upload directory.
	name := strings.TrimPrefix(item.PhotoPath, "/uploads/")
	stored, err := os.ReadFile(filepath.Join(os.Getenv("UPLOAD_DIR"), name))
	require.NoError(t, err)
	require.Equal(t, photoBytes, stored)

	// And the details page must reference it.
	w = doGET(r, fmt.Sprintf("/items/%d", item.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
}
