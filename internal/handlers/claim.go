package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
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

type ClaimHandler struct {
	mailService *services.MailService
}

func NewClaimHandler() *ClaimHandler {
	return &ClaimHandler{
		mailService: services.NewMailService(),
	}
}

// errClaimLost signals that the Open -> PendingClaim transition was won by a
// concurrent claim, so this request must not create anything.
var errClaimLost = errors.New("item is no longer open")

func itemDetailPath(itemID uint) string {
	return fmt.Sprintf("/items/%d", itemID)
}

func siteLink(path string) string {
	base := os.Getenv("SITE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	return strings.TrimSuffix(base, "/") + path
}

// List shows all claims with their item report. Admin-only by routing.
func (h *ClaimHandler) List(c *gin.Context) {
	var claims []models.Claim
	db.DB.Preload("ItemReport").Order("created_at DESC").Find(&claims)

	Render(c, http.StatusOK, "claim/list.html", gin.H{
		"Title":  "Claims",
		"Claims": claims,
	})
}

// Detail shows a single claim. Admin-only by routing.
func (h *ClaimHandler) Detail(c *gin.Context) {
	id := utils.StringToUint(c.Param("id"))

	var claim models.Claim
	if err := db.DB.Preload("ItemReport").First(&claim, id).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Claim not found")
		return
	}

	Render(c, http.StatusOK, "claim/detail.html", gin.H{
		"Title":   fmt.Sprintf("Claim #%d", claim.ID),
		"Claim":   claim,
		"Message": utils.RenderMarkdown(claim.Message),
	})
}

// claimGuard applies the two create-time rules: you cannot claim your own
// item, and only Open items are claimable. A non-empty result is a redirect
// target; the guarded cases redirect silently to the item details.
func claimGuard(user *models.User, item *models.ItemReport) string {
	if item.OwnedBy(user.ID) {
		return itemDetailPath(item.ID)
	}
	if item.Status != models.ItemStatusOpen {
		return itemDetailPath(item.ID)
	}
	return ""
}

func (h *ClaimHandler) ShowCreate(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	itemID := utils.StringToUint(c.Param("id"))

	var item models.ItemReport
	if err := db.DB.Preload("Category").Preload("Location").First(&item, itemID).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Item report not found")
		return
	}

	if redirect := claimGuard(user, &item); redirect != "" {
		c.Redirect(http.StatusFound, redirect)
		return
	}

	Render(c, http.StatusOK, "claim/create.html", gin.H{
		"Title": "Claim item",
		"Item":  item,
	})
}

func (h *ClaimHandler) Create(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	itemID := utils.StringToUint(c.Param("id"))

	var item models.ItemReport
	if err := db.DB.Preload("Category").Preload("Location").First(&item, itemID).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Item report not found")
		return
	}

	claimerName := strings.TrimSpace(c.PostForm("claimer_name"))
	claimerEmail := strings.TrimSpace(c.PostForm("claimer_email"))
	message := c.PostForm("message")

	if claimerName == "" || claimerEmail == "" || !strings.Contains(claimerEmail, "@") {
		Render(c, http.StatusBadRequest, "claim/create.html", gin.H{
			"Error":        "Name and a valid email address are required",
			"Item":         item,
			"ClaimerName":  claimerName,
			"ClaimerEmail": claimerEmail,
			"Message":      message,
		})
		return
	}

	if redirect := claimGuard(user, &item); redirect != "" {
		c.Redirect(http.StatusFound, redirect)
		return
	}

	claim := models.Claim{
		ItemReportID: item.ID,
		ClaimerName:  claimerName,
		ClaimerEmail: claimerEmail,
		Message:      message,
		Status:       models.ClaimStatusNew,
		CreatedAt:    time.Now(),
	}

	// The status check above ran outside the write, so two concurrent claims
	// could both see Open. The conditional update serializes the transition:
	// only the request that flips Open -> PendingClaim gets to insert a claim.
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ItemReport{}).
			Where("id = ? AND status = ?", item.ID, models.ItemStatusOpen).
			Update("status", models.ItemStatusPendingClaim)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errClaimLost
		}
		return tx.Create(&claim).Error
	})
	if errors.Is(err, errClaimLost) {
		c.Redirect(http.StatusFound, itemDetailPath(item.ID))
		return
	}
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not submit the claim")
		return
	}

	invalidateListCache()

	// Let the owner know someone claimed their listing.
	if item.OwnerID != nil {
		var owner models.User
		if err := db.DB.First(&owner, *item.OwnerID).Error; err == nil {
			h.mailService.SendClaimReceived(owner.Email, item.Title, claimerName, siteLink(itemDetailPath(item.ID)))
		}
	}

	c.Redirect(http.StatusFound, itemDetailPath(item.ID))
}

func (h *ClaimHandler) ShowEdit(c *gin.Context) {
	id := utils.StringToUint(c.Param("id"))

	var claim models.Claim
	if err := db.DB.Preload("ItemReport").First(&claim, id).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Claim not found")
		return
	}

	Render(c, http.StatusOK, "claim/edit.html", gin.H{
		"Title": fmt.Sprintf("Edit claim #%d", claim.ID),
		"Claim": claim,
	})
}

// Edit overwrites the claimer fields. Status is deliberately not writable
// here; Approve, Reject and Delete are the only status paths.
func (h *ClaimHandler) Edit(c *gin.Context) {
	id := utils.StringToUint(c.Param("id"))

	var claim models.Claim
	if err := db.DB.First(&claim, id).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Claim not found")
		return
	}

	claimerName := strings.TrimSpace(c.PostForm("claimer_name"))
	claimerEmail := strings.TrimSpace(c.PostForm("claimer_email"))
	message := c.PostForm("message")

	if claimerName == "" || claimerEmail == "" || !strings.Contains(claimerEmail, "@") {
		Render(c, http.StatusBadRequest, "claim/edit.html", gin.H{
			"Error": "Name and a valid email address are required",
			"Claim": claim,
		})
		return
	}

	res := db.DB.Model(&claim).Updates(map[string]interface{}{
		"claimer_name":  claimerName,
		"claimer_email": claimerEmail,
		"message":       message,
	})
	if res.Error != nil {
		RenderError(c, http.StatusInternalServerError, "Could not save the claim")
		return
	}
	if res.RowsAffected == 0 {
		RenderError(c, http.StatusNotFound, "Claim not found")
		return
	}

	c.Redirect(http.StatusFound, "/claims")
}

func (h *ClaimHandler) ShowDelete(c *gin.Context) {
	id := utils.StringToUint(c.Param("id"))

	var claim models.Claim
	if err := db.DB.Preload("ItemReport").First(&claim, id).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Claim not found")
		return
	}

	Render(c, http.StatusOK, "claim/delete.html", gin.H{
		"Title": fmt.Sprintf("Delete claim #%d", claim.ID),
		"Claim": claim,
	})
}

// Delete removes a claim. A still-New claim is an implicit cancellation, so
// its item goes back to Open; decided claims leave the item untouched.
func (h *ClaimHandler) Delete(c *gin.Context) {
	id := utils.StringToUint(c.Param("id"))

	var claim models.Claim
	if err := db.DB.First(&claim, id).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Claim not found")
		return
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if claim.Status == models.ClaimStatusNew {
			if err := tx.Model(&models.ItemReport{}).
				Where("id = ?", claim.ItemReportID).
				Update("status", models.ItemStatusOpen).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&claim).Error
	})
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not delete the claim")
		return
	}

	invalidateListCache()
	c.Redirect(http.StatusFound, "/claims")
}

func (h *ClaimHandler) Approve(c *gin.Context) {
	h.decide(c, models.ClaimStatusApproved, models.ItemStatusClaimed)
}

func (h *ClaimHandler) Reject(c *gin.Context) {
	h.decide(c, models.ClaimStatusRejected, models.ItemStatusOpen)
}

func (h *ClaimHandler) decide(c *gin.Context, claimStatus models.ClaimStatus, itemStatus models.ItemStatus) {
	id := utils.StringToUint(c.Param("id"))

	var claim models.Claim
	if err := db.DB.Preload("ItemReport").First(&claim, id).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Claim not found")
		return
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&claim).Update("status", claimStatus).Error; err != nil {
			return err
		}
		if claim.ItemReport.ID != 0 {
			return tx.Model(&claim.ItemReport).Update("status", itemStatus).Error
		}
		return nil
	})
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not update the claim")
		return
	}

	invalidateListCache()

	if claim.ItemReport.ID != 0 {
		h.mailService.SendClaimDecision(
			claim.ClaimerEmail,
			claim.ItemReport.Title,
			claimStatus == models.ClaimStatusApproved,
			siteLink(itemDetailPath(claim.ItemReport.ID)),
		)
	}

	c.Redirect(http.StatusFound, "/claims")
}
