package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"campusfound/internal/db"
	"campusfound/internal/middleware"
	"campusfound/internal/models"
	"campusfound/internal/services"
	"campusfound/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ItemReportHandler struct {
	photos *services.PhotoStorage
}

func NewItemReportHandler() *ItemReportHandler {
	return &ItemReportHandler{
		photos: services.NewPhotoStorage(),
	}
}

const listCacheTTL = 1 * time.Minute

func listCacheKey(typeFilter string, page int) string {
	return fmt.Sprintf("items:list:%s:page:%d", typeFilter, page)
}

// invalidateListCache drops the cached first pages after any item mutation.
func invalidateListCache() {
	for _, f := range []string{"", "lost", "found"} {
		utils.GetCache().Delete(listCacheKey(f, 1))
	}
}

// copyH clones a render map. Render writes per-request keys (CurrentUser,
// CurrentPath) into the map it is given, so a cached map must never be
// handed to it directly: one viewer's identity would leak into every
// cache hit, and concurrent hits would write to the same map.
func copyH(h gin.H) gin.H {
	out := make(gin.H, len(h)+2)
	for k, v := range h {
		out[k] = v
	}
	return out
}

// canEditOrDelete applies the ownership/role guard: admins always may,
// claimed items are frozen for everyone else, otherwise only the owner.
func canEditOrDelete(user *models.User, item *models.ItemReport) bool {
	if user.IsAdmin() {
		return true
	}
	if item.Status == models.ItemStatusClaimed {
		return false
	}
	return item.OwnedBy(user.ID)
}

// itemFormRefs loads the reference data every item form needs.
func itemFormRefs() (categories []models.Category, locations []models.Location) {
	db.DB.Order("id ASC").Find(&categories)
	db.DB.Order("id ASC").Find(&locations)
	return
}

type itemForm struct {
	Type         models.ReportType
	Title        string
	Description  string
	CategoryID   uint
	LocationID   uint
	ContactName  string
	ContactEmail string
}

func bindItemForm(c *gin.Context) itemForm {
	return itemForm{
		Type:         models.ReportType(utils.StringToInt(c.PostForm("type"))),
		Title:        strings.TrimSpace(c.PostForm("title")),
		Description:  c.PostForm("description"),
		CategoryID:   utils.StringToUint(c.PostForm("category_id")),
		LocationID:   utils.StringToUint(c.PostForm("location_id")),
		ContactName:  strings.TrimSpace(c.PostForm("contact_name")),
		ContactEmail: strings.TrimSpace(c.PostForm("contact_email")),
	}
}

func (f itemForm) validate() string {
	if f.Type != models.ReportTypeLost && f.Type != models.ReportTypeFound {
		return "Please choose whether the item was lost or found"
	}
	if f.Title == "" {
		return "Title is required"
	}
	if f.ContactName == "" {
		return "Contact name is required"
	}
	if f.ContactEmail == "" || !strings.Contains(f.ContactEmail, "@") {
		return "A valid contact email is required"
	}
	var count int64
	db.DB.Model(&models.Category{}).Where("id = ?", f.CategoryID).Count(&count)
	if count == 0 {
		return "Please choose a category"
	}
	db.DB.Model(&models.Location{}).Where("id = ?", f.LocationID).Count(&count)
	if count == 0 {
		return "Please choose a location"
	}
	return ""
}

// List is public: all item reports with category/location resolved.
func (h *ItemReportHandler) List(c *gin.Context) {
	page := 1
	if p := utils.StringToInt(c.Query("page")); p > 0 {
		page = p
	}
	typeFilter := c.Query("type") // "", "lost" or "found"

	cacheKey := listCacheKey(typeFilter, page)
	if cached := utils.GetCache().Get(cacheKey); cached != nil {
		if hData, ok := cached.(gin.H); ok {
			Render(c, http.StatusOK, "item/list.html", copyH(hData))
			return
		}
	}

	perPage := 30
	offset := (page - 1) * perPage

	typeWhere := func(q *gorm.DB) *gorm.DB {
		switch typeFilter {
		case "lost":
			return q.Where("type = ?", models.ReportTypeLost)
		case "found":
			return q.Where("type = ?", models.ReportTypeFound)
		}
		return q
	}

	var total int64
	typeWhere(db.DB.Model(&models.ItemReport{})).Count(&total)
	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	if totalPages == 0 {
		totalPages = 1
	}

	var items []models.ItemReport
	typeWhere(db.DB.Preload("Category").Preload("Location")).
		Order("date_reported DESC").
		Limit(perPage).
		Offset(offset).
		Find(&items)

	renderData := gin.H{
		"Items":       items,
		"TypeFilter":  typeFilter,
		"Title":       "Lost & Found",
		"CurrentPage": page,
		"TotalPages":  totalPages,
	}

	utils.GetCache().Set(cacheKey, renderData, listCacheTTL)

	Render(c, http.StatusOK, "item/list.html", copyH(renderData))
}

// Detail is public: one item report by id.
func (h *ItemReportHandler) Detail(c *gin.Context) {
	id := utils.StringToUint(c.Param("id"))

	var item models.ItemReport
	if err := db.DB.Preload("Category").Preload("Location").First(&item, id).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Item report not found")
		return
	}

	user := middleware.CurrentUser(c)

	// Claims are only surfaced to admins.
	var claims []models.Claim
	if user != nil && user.IsAdmin() {
		db.DB.Where("item_report_id = ?", item.ID).Order("created_at DESC").Find(&claims)
	}

	canClaim := user != nil && item.Status == models.ItemStatusOpen && !item.OwnedBy(user.ID)

	Render(c, http.StatusOK, "item/detail.html", gin.H{
		"Item":        item,
		"Description": utils.RenderMarkdown(item.Description),
		"Claims":      claims,
		"CanClaim":    canClaim,
		"CanManage":   user != nil && canEditOrDelete(user, &item),
		"Title":       item.Title,
	})
}

func (h *ItemReportHandler) ShowCreate(c *gin.Context) {
	categories, locations := itemFormRefs()

	// Allow preselecting the type, e.g. /items/new?type=found.
	presetType := models.ReportTypeLost
	if c.Query("type") == "found" {
		presetType = models.ReportTypeFound
	}

	Render(c, http.StatusOK, "item/create.html", gin.H{
		"Title":      "New report",
		"Categories": categories,
		"Locations":  locations,
		"PresetType": presetType,
	})
}

func (h *ItemReportHandler) Create(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	form := bindItemForm(c)
	if errMsg := form.validate(); errMsg != "" {
		categories, locations := itemFormRefs()
		Render(c, http.StatusBadRequest, "item/create.html", gin.H{
			"Error":      errMsg,
			"Form":       form,
			"Categories": categories,
			"Locations":  locations,
		})
		return
	}

	item := models.ItemReport{
		OwnerID:      &user.ID,
		Type:         form.Type,
		Title:        form.Title,
		Description:  form.Description,
		CategoryID:   form.CategoryID,
		LocationID:   form.LocationID,
		DateReported: time.Now(),
		Status:       models.ItemStatusOpen,
		ContactName:  form.ContactName,
		ContactEmail: form.ContactEmail,
	}

	if file, header, err := c.Request.FormFile("photo"); err == nil {
		defer file.Close()
		path, err := h.photos.Save(file, header)
		if err != nil {
			categories, locations := itemFormRefs()
			Render(c, http.StatusBadRequest, "item/create.html", gin.H{
				"Error":      err.Error(),
				"Form":       form,
				"Categories": categories,
				"Locations":  locations,
			})
			return
		}
		item.PhotoPath = path
	}

	if err := db.DB.Create(&item).Error; err != nil {
		// The photo hit disk before the insert; clean it up so a failed
		// create does not leave an orphaned file behind.
		if item.PhotoPath != "" {
			h.photos.Remove(item.PhotoPath)
		}
		RenderError(c, http.StatusInternalServerError, "Could not save the report")
		return
	}

	invalidateListCache()
	c.Redirect(http.StatusFound, "/items")
}

func (h *ItemReportHandler) ShowEdit(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	id := utils.StringToUint(c.Param("id"))

	var item models.ItemReport
	if err := db.DB.First(&item, id).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Item report not found")
		return
	}

	if !canEditOrDelete(user, &item) {
		RenderError(c, http.StatusForbidden, "You may not edit this report")
		return
	}

	categories, locations := itemFormRefs()
	Render(c, http.StatusOK, "item/edit.html", gin.H{
		"Title":      "Edit report",
		"Item":       item,
		"Categories": categories,
		"Locations":  locations,
	})
}

func (h *ItemReportHandler) Edit(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	id := utils.StringToUint(c.Param("id"))

	var item models.ItemReport
	if err := db.DB.First(&item, id).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Item report not found")
		return
	}

	if !canEditOrDelete(user, &item) {
		RenderError(c, http.StatusForbidden, "You may not edit this report")
		return
	}

	form := bindItemForm(c)
	if errMsg := form.validate(); errMsg != "" {
		categories, locations := itemFormRefs()
		Render(c, http.StatusBadRequest, "item/edit.html", gin.H{
			"Error":      errMsg,
			"Item":       item,
			"Categories": categories,
			"Locations":  locations,
		})
		return
	}

	// Overwrite the mutable fields. Status is never writable here: it only
	// moves through the claim lifecycle.
	item.Type = form.Type
	item.Title = form.Title
	item.Description = form.Description
	item.CategoryID = form.CategoryID
	item.LocationID = form.LocationID
	item.ContactName = form.ContactName
	item.ContactEmail = form.ContactEmail

	if file, header, err := c.Request.FormFile("photo"); err == nil {
		defer file.Close()
		path, err := h.photos.Save(file, header)
		if err != nil {
			categories, locations := itemFormRefs()
			Render(c, http.StatusBadRequest, "item/edit.html", gin.H{
				"Error":      err.Error(),
				"Item":       item,
				"Categories": categories,
				"Locations":  locations,
			})
			return
		}
		item.PhotoPath = path
	}

	res := db.DB.Save(&item)
	if res.Error != nil {
		RenderError(c, http.StatusInternalServerError, "Could not save the report")
		return
	}
	if res.RowsAffected == 0 {
		// Row vanished between load and save.
		RenderError(c, http.StatusNotFound, "Item report not found")
		return
	}

	invalidateListCache()
	c.Redirect(http.StatusFound, "/items")
}

func (h *ItemReportHandler) ShowDelete(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	id := utils.StringToUint(c.Param("id"))

	var item models.ItemReport
	if err := db.DB.Preload("Category").Preload("Location").First(&item, id).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Item report not found")
		return
	}

	if !canEditOrDelete(user, &item) {
		RenderError(c, http.StatusForbidden, "You may not delete this report")
		return
	}

	Render(c, http.StatusOK, "item/delete.html", gin.H{
		"Title": "Delete report",
		"Item":  item,
	})
}

func (h *ItemReportHandler) Delete(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	id := utils.StringToUint(c.Param("id"))

	var item models.ItemReport
	if err := db.DB.First(&item, id).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Item report not found")
		return
	}

	if !canEditOrDelete(user, &item) {
		RenderError(c, http.StatusForbidden, "You may not delete this report")
		return
	}

	// Claims go with the item, independent of driver-level FK settings.
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_report_id = ?", item.ID).Delete(&models.Claim{}).Error; err != nil {
			return err
		}
		return tx.Delete(&item).Error
	})
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not delete the report")
		return
	}

	invalidateListCache()
	c.Redirect(http.StatusFound, "/items")
}

// Reopen moves a Claimed item back to Open. Admin-only escape hatch, since
// nothing in the claim lifecycle unwinds an approved claim.
func (h *ItemReportHandler) Reopen(c *gin.Context) {
	id := utils.StringToUint(c.Param("id"))

	var item models.ItemReport
	if err := db.DB.First(&item, id).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Item report not found")
		return
	}

	if item.Status == models.ItemStatusClaimed {
		db.DB.Model(&item).Update("status", models.ItemStatusOpen)
		invalidateListCache()
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("/items/%d", item.ID))
}
