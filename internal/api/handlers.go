package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"primerjalnik/server/internal/apperrors"
	"primerjalnik/server/internal/catalog"
	"primerjalnik/server/internal/criteria"
	"primerjalnik/server/internal/handoff"
	"primerjalnik/server/internal/models"
	"primerjalnik/server/internal/prefs"
	"primerjalnik/server/internal/recommend"
	"primerjalnik/server/internal/results"
	"primerjalnik/server/internal/session"
	"primerjalnik/server/internal/snapshot"
	"primerjalnik/server/internal/watchlist"
)

var phonePattern = regexp.MustCompile(`^[0-9]{6,15}$`)

type Handler struct {
	logger      *logrus.Logger
	catalog     *catalog.Client
	modelLoader *catalog.ModelLoader
	sessions    *session.Manager
	watchlist   *watchlist.Store
	prefs       *prefs.Store
	recommender *recommend.Recommender
	handoff     *handoff.Channel
	queue       *snapshot.ListingQueue
}

func NewHandler(
	catalogClient *catalog.Client,
	sessions *session.Manager,
	watchlistStore *watchlist.Store,
	prefsStore *prefs.Store,
	recommender *recommend.Recommender,
	handoffChannel *handoff.Channel,
	queue *snapshot.ListingQueue,
	logger *logrus.Logger,
) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		logger:      logger,
		catalog:     catalogClient,
		modelLoader: catalog.NewModelLoader(catalogClient),
		sessions:    sessions,
		watchlist:   watchlistStore,
		prefs:       prefsStore,
		recommender: recommender,
		handoff:     handoffChannel,
		queue:       queue,
	}
}

type searchRequest struct {
	Category models.Category   `json:"category" binding:"required"`
	Criteria criteria.Criteria `json:"criteria"`
}

// SubmitSearch records the submitted criteria and category in the handoff
// channel for the results view to consume.
func (h *Handler) SubmitSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Failed to parse search request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid search parameters"})
		return
	}
	if !req.Category.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown vehicle category"})
		return
	}

	if err := h.handoff.PutSearch(req.Category, req.Criteria); err != nil {
		h.logger.WithError(err).Error("Failed to store search handoff")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit search"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "submitted"})
}

// GetResults consumes the pending search (or AI results), runs the catalog
// query, and returns one sorted page. A failed fetch degrades to an empty
// page flagged as degraded so callers can distinguish it from zero matches.
func (h *Handler) GetResults(c *gin.Context) {
	order := results.SortOrder(c.Query("sort"))
	if !order.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown sort order"})
		return
	}
	pageIndex, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || pageIndex < 1 {
		pageIndex = 1
	}

	if listings, ok, err := h.handoff.TakeAIResults(); err == nil && ok {
		c.JSON(http.StatusOK, gin.H{"results": results.Present(listings, order, pageIndex)})
		return
	} else if err != nil {
		h.logger.WithError(err).Error("Failed to read AI results handoff")
	}

	category, crit, ok, err := h.handoff.TakeSearch()
	if err != nil {
		h.logger.WithError(err).Error("Failed to read search handoff")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read submitted search"})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"results": results.Paginate(nil, pageIndex)})
		return
	}

	listings, err := h.catalog.SearchListings(c.Request.Context(), category, crit)
	if err != nil {
		h.logger.WithError(err).WithField("category", category).Error("Failed to fetch listings")
		c.JSON(http.StatusOK, gin.H{
			"results":  results.Paginate(nil, pageIndex),
			"degraded": true,
		})
		return
	}

	h.snapshotListings(listings)
	c.JSON(http.StatusOK, gin.H{"results": results.Present(listings, order, pageIndex)})
}

type promptRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// AISearch forwards a natural-language prompt to the backend and parks the
// returned listings in the handoff channel, tagged as cars.
func (h *Handler) AISearch(c *gin.Context) {
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Failed to parse prompt request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "A search prompt is required"})
		return
	}

	listings, err := h.catalog.SearchByPrompt(c.Request.Context(), req.Prompt)
	if err != nil {
		h.logger.WithError(err).Error("AI search failed")
		c.JSON(http.StatusOK, gin.H{"count": 0, "degraded": true})
		return
	}

	if err := h.handoff.PutAIResults(listings); err != nil {
		h.logger.WithError(err).Error("Failed to store AI results handoff")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store search results"})
		return
	}

	h.snapshotListings(listings)
	c.JSON(http.StatusOK, gin.H{"count": len(listings), "status": "submitted"})
}

// GetMakes returns the make dropdown options for a category.
func (h *Handler) GetMakes(c *gin.Context) {
	category := models.Category(c.Param("category"))
	if !category.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown vehicle category"})
		return
	}

	makes, err := h.catalog.Makes(c.Request.Context(), category)
	if err != nil {
		h.logger.WithError(err).WithField("category", category).Error("Failed to fetch makes")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch makes"})
		return
	}

	c.JSON(http.StatusOK, makes)
}

// GetModels returns the model dropdown options for the selected make. The
// loader discards responses for superseded make selections; in that case the
// list of the latest selection is returned instead.
func (h *Handler) GetModels(c *gin.Context) {
	category := models.Category(c.Param("category"))
	if !category.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown vehicle category"})
		return
	}

	modelNames, err := h.modelLoader.Load(c.Request.Context(), category, c.Query("make"))
	if errors.Is(err, catalog.ErrSuperseded) {
		c.JSON(http.StatusOK, h.modelLoader.Current(category))
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("category", category).Error("Failed to fetch models")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch models"})
		return
	}
	if modelNames == nil {
		modelNames = []string{}
	}

	c.JSON(http.StatusOK, modelNames)
}

// GetBuckets returns the discrete filter ranges for the category's form,
// with power boundaries expressed in the requested unit.
func (h *Handler) GetBuckets(c *gin.Context) {
	category := models.Category(c.Param("category"))
	if !category.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown vehicle category"})
		return
	}

	unit := criteria.PowerUnit(c.DefaultQuery("unit", string(criteria.UnitKW)))
	if unit != criteria.UnitKW && unit != criteria.UnitHP {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown power unit"})
		return
	}

	buckets := gin.H{
		"power":   criteria.PowerRanges(category, unit),
		"mileage": criteria.MileageRanges(category),
		"price":   criteria.PricePoints(category),
		"years":   criteria.Years(),
	}
	switch category {
	case models.CategoryCar:
		buckets["engineCcm"] = criteria.EngineCcmRanges()
	case models.CategoryTruck:
		buckets["engineCcm"] = criteria.EngineCcmRanges()
		buckets["loadCapacity"] = criteria.LoadCapacityRanges()
	}

	c.JSON(http.StatusOK, buckets)
}

// GetRecommendations builds the personalized feed from the identity's saved
// preferences. A failed preferences fetch degrades to an empty profile list,
// which still yields the newest-listings backfill.
func (h *Handler) GetRecommendations(c *gin.Context) {
	ident, err := h.sessions.Require()
	if err != nil {
		h.authRequired(c)
		return
	}

	category := models.Category(c.DefaultQuery("category", string(models.CategoryCar)))
	if !category.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown vehicle category"})
		return
	}

	saved, err := h.prefs.Fetch(c.Request.Context(), ident, category)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", ident.UserID).Error("Failed to fetch preferences, recommending without them")
		saved = nil
	}

	feed := h.recommender.ForPreferences(c.Request.Context(), category, saved)
	c.JSON(http.StatusOK, gin.H{"recommendations": feed})
}

// GetWatchlist returns the identity's saved vehicles.
func (h *Handler) GetWatchlist(c *gin.Context) {
	ident, err := h.sessions.Require()
	if err != nil {
		h.authRequired(c)
		return
	}

	list, err := h.watchlist.Load(ident.UserID)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", ident.UserID).Error("Failed to load watchlist")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load watchlist"})
		return
	}

	c.JSON(http.StatusOK, list)
}

// AddToWatchlist saves a vehicle snapshot for the identity.
func (h *Handler) AddToWatchlist(c *gin.Context) {
	ident, err := h.sessions.Require()
	if err != nil {
		h.authRequired(c)
		return
	}

	var vehicle models.Vehicle
	if err := c.ShouldBindJSON(&vehicle); err != nil {
		h.logger.WithError(err).Error("Failed to parse watchlist request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vehicle"})
		return
	}
	if vehicle.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Vehicle is missing an identifier"})
		return
	}

	if err := h.watchlist.Add(ident.UserID, vehicle); err != nil {
		if errors.Is(err, watchlist.ErrAlreadyPresent) {
			c.JSON(http.StatusConflict, gin.H{"error": "Vehicle is already on the watchlist"})
			return
		}
		h.logger.WithError(err).WithField("user_id", ident.UserID).Error("Failed to add to watchlist")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save vehicle"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

// RemoveFromWatchlist deletes by identifier; unknown identifiers are fine.
func (h *Handler) RemoveFromWatchlist(c *gin.Context) {
	ident, err := h.sessions.Require()
	if err != nil {
		h.authRequired(c)
		return
	}

	if err := h.watchlist.Remove(ident.UserID, c.Param("id")); err != nil {
		h.logger.WithError(err).WithField("user_id", ident.UserID).Error("Failed to remove from watchlist")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove vehicle"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

// GetPreferences returns the identity's saved search profiles for a
// category, degrading to an empty list when the backend is unreachable.
func (h *Handler) GetPreferences(c *gin.Context) {
	ident, err := h.sessions.Require()
	if err != nil {
		h.authRequired(c)
		return
	}

	category := models.Category(c.Param("category"))
	if !category.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown vehicle category"})
		return
	}

	saved, err := h.prefs.Fetch(c.Request.Context(), ident, category)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", ident.UserID).Error("Failed to fetch preferences")
		c.JSON(http.StatusOK, gin.H{"preferences": []models.Preference{}, "degraded": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{"preferences": saved})
}

// AddPreference validates and saves a new search profile.
func (h *Handler) AddPreference(c *gin.Context) {
	ident, err := h.sessions.Require()
	if err != nil {
		h.authRequired(c)
		return
	}

	category := models.Category(c.Param("category"))
	if !category.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown vehicle category"})
		return
	}

	var pref models.Preference
	if err := c.ShouldBindJSON(&pref); err != nil {
		h.logger.WithError(err).Error("Failed to parse preference")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid preference"})
		return
	}

	if err := h.prefs.Add(c.Request.Context(), ident, category, pref); err != nil {
		if apperrors.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithError(err).WithField("user_id", ident.UserID).Error("Failed to save preference")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to save preference"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

// RemovePreference deletes a profile by position.
func (h *Handler) RemovePreference(c *gin.Context) {
	ident, err := h.sessions.Require()
	if err != nil {
		h.authRequired(c)
		return
	}

	category := models.Category(c.Param("category"))
	if !category.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown vehicle category"})
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid preference index"})
		return
	}

	if err := h.prefs.Remove(c.Request.Context(), ident, category, index); err != nil {
		h.logger.WithError(err).WithField("user_id", ident.UserID).Error("Failed to delete preference")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to delete preference"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

type registerRequest struct {
	Token string `json:"token" binding:"required"`
	Phone string `json:"phone"`
}

// Register exchanges a provider token for a backend user id. The optional
// phone number must be 6 to 15 digits.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "An identity token is required"})
		return
	}
	if req.Phone != "" && !phonePattern.MatchString(req.Phone) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Phone number must be 6 to 15 digits"})
		return
	}

	h.establishSession(c, req.Token, h.sessions.Register)
}

type loginRequest struct {
	Token string `json:"token" binding:"required"`
}

// Login exchanges a provider token for a backend user id.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "An identity token is required"})
		return
	}
	h.establishSession(c, req.Token, h.sessions.Login)
}

// LoginWithGoogle exchanges a Google-issued provider token.
func (h *Handler) LoginWithGoogle(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "An identity token is required"})
		return
	}
	h.establishSession(c, req.Token, h.sessions.LoginWithGoogle)
}

// Logout drops the current identity.
func (h *Handler) Logout(c *gin.Context) {
	h.sessions.Logout()
	c.JSON(http.StatusOK, gin.H{"status": "signed out"})
}

func (h *Handler) establishSession(c *gin.Context, token string, exchange func(ctx context.Context, token string) (session.Identity, error)) {
	ident, err := exchange(c.Request.Context(), token)
	if err != nil {
		if apperrors.IsAuthRequired(err) || apperrors.IsValidation(err) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithError(err).Error("Auth exchange failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Authentication service unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": ident.UserID, "email": ident.Email})
}

func (h *Handler) authRequired(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": "Sign in to use this feature"})
}

// snapshotListings parks a fetched batch for the snapshot writer. A full
// queue only costs freshness, never a user-facing error.
func (h *Handler) snapshotListings(listings []models.Vehicle) {
	if h.queue == nil || len(listings) == 0 {
		return
	}
	if err := h.queue.Push(listings); err != nil {
		h.logger.WithError(err).Debug("Skipped listing snapshot")
	}
}
