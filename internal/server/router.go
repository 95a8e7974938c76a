package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stagematch/backend/internal/auth"
	"github.com/stagematch/backend/internal/profiles"
	"github.com/stagematch/backend/internal/sharing"
	"github.com/stagematch/backend/internal/tracks"
	"github.com/stagematch/backend/internal/users"
	"go.uber.org/zap"
)

const externalIDContextKey = "stagematch_external_auth_id"

var (
	errMissingVerifier        = errors.New("identity verifier dependency required")
	errMissingProfilesService = errors.New("profiles service dependency required")
	errMissingSharingService  = errors.New("sharing service dependency required")
	errMissingTracksService   = errors.New("tracks service dependency required")
	errInvalidAuthorization   = errors.New("authorization header missing or invalid")
)

// IdentityVerifier validates identity-provider tokens presented by callers.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (auth.IdentityClaims, error)
}

// Dependencies bundles the collaborators injected into the HTTP handler.
type Dependencies struct {
	Verifier IdentityVerifier
	Profiles *profiles.Service
	Sharing  *sharing.Service
	Tracks   *tracks.Service
	Logger   *zap.Logger
}

// NewHTTPHandler wires the API routes and returns the root handler.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Verifier == nil {
		return nil, errMissingVerifier
	}
	if deps.Profiles == nil {
		return nil, errMissingProfilesService
	}
	if deps.Sharing == nil {
		return nil, errMissingSharingService
	}
	if deps.Tracks == nil {
		return nil, errMissingTracksService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		verifier: deps.Verifier,
		profiles: deps.Profiles,
		sharing:  deps.Sharing,
		tracks:   deps.Tracks,
		logger:   logger,
	}

	router.GET("/profiles/:id", handler.handleGetProfile)
	router.GET("/bands", handler.handleListBands)
	router.GET("/gig-providers", handler.handleListGigProviders)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.POST("/profiles", handler.handleCreateOrUpdateProfile)
	protected.GET("/profiles/me", handler.handleGetOwnProfile)
	protected.PUT("/profiles/me/audio-tracks", handler.handleSetAudioTracks)
	protected.POST("/profiles/me/audio-tracks", handler.handleUploadAudioTrack)
	protected.DELETE("/profiles/me/audio-tracks", handler.handleDeleteAudioTrack)
	protected.POST("/shared-profiles", handler.handleShareProfile)
	protected.GET("/shared-profiles", handler.handleListSharedProfiles)
	protected.DELETE("/shared-profiles/:id", handler.handleDeleteSharedProfile)

	return router, nil
}

type httpHandler struct {
	verifier IdentityVerifier
	profiles *profiles.Service
	sharing  *sharing.Service
	tracks   *tracks.Service
	logger   *zap.Logger
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	claims, err := h.verifier.Verify(c.Request.Context(), token)
	if err != nil {
		h.logger.Warn("token verification failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(externalIDContextKey, claims.Subject)
	c.Next()
}

type profileRequestPayload struct {
	Name         string   `json:"name"`
	ImageURL     string   `json:"imageUrl"`
	ProfileType  string   `json:"profileType"`
	Location     string   `json:"location"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Description  string   `json:"description"`
	Website      string   `json:"website"`
	Genre        string   `json:"genre"`
	Services     string   `json:"services"`
	VideoURL     string   `json:"videoUrl"`
	Email        string   `json:"email"`
	PhoneNumber  string   `json:"phoneNumber"`
	HeaderImage  string   `json:"headerImage"`
	FacebookURL  string   `json:"facebookUrl"`
	InstagramURL string   `json:"instagramUrl"`
	BandMembers  []string `json:"bandMembers"`
	Photos       []string `json:"photos"`
}

func (h *httpHandler) handleCreateOrUpdateProfile(c *gin.Context) {
	externalID := c.GetString(externalIDContextKey)
	if externalID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var request profileRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	profile, err := h.profiles.CreateOrUpdate(c.Request.Context(), externalID, profiles.Input{
		Name:         request.Name,
		ImageURL:     request.ImageURL,
		ProfileType:  users.ProfileType(request.ProfileType),
		Location:     request.Location,
		Latitude:     request.Latitude,
		Longitude:    request.Longitude,
		Description:  request.Description,
		Website:      request.Website,
		Genre:        request.Genre,
		Services:     request.Services,
		VideoURL:     request.VideoURL,
		Email:        request.Email,
		PhoneNumber:  request.PhoneNumber,
		HeaderImage:  request.HeaderImage,
		FacebookURL:  request.FacebookURL,
		InstagramURL: request.InstagramURL,
		BandMembers:  request.BandMembers,
		Photos:       request.Photos,
	})
	if err != nil {
		h.respondError(c, "profile upsert failed", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *httpHandler) handleGetProfile(c *gin.Context) {
	view, err := h.profiles.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "profile fetch failed", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *httpHandler) handleGetOwnProfile(c *gin.Context) {
	externalID := c.GetString(externalIDContextKey)
	view, err := h.profiles.GetOwn(c.Request.Context(), externalID)
	if err != nil {
		h.respondError(c, "own profile fetch failed", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *httpHandler) handleListBands(c *gin.Context) {
	page, limit := paginationParams(c)
	result, err := h.profiles.ListBands(c.Request.Context(), c.Query("q"), page, limit)
	if err != nil {
		h.respondError(c, "band listing failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) handleListGigProviders(c *gin.Context) {
	page, limit := paginationParams(c)
	result, err := h.profiles.ListGigProviders(c.Request.Context(), c.Query("q"), page, limit)
	if err != nil {
		h.respondError(c, "gig provider listing failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type setTracksRequestPayload struct {
	AudioTracks *[]profiles.AudioTrack `json:"audioTracks"`
}

func (h *httpHandler) handleSetAudioTracks(c *gin.Context) {
	externalID := c.GetString(externalIDContextKey)

	var request setTracksRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.AudioTracks == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "audioTracks must be an array"})
		return
	}

	profile, err := h.profiles.SetAudioTracks(c.Request.Context(), externalID, *request.AudioTracks)
	if err != nil {
		h.respondError(c, "audio track replacement failed", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *httpHandler) handleUploadAudioTrack(c *gin.Context) {
	externalID := c.GetString(externalIDContextKey)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	defer file.Close()

	profile, err := h.tracks.Upload(
		c.Request.Context(),
		externalID,
		c.PostForm("name"),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		file,
	)
	if err != nil {
		h.respondError(c, "audio track upload failed", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *httpHandler) handleDeleteAudioTrack(c *gin.Context) {
	externalID := c.GetString(externalIDContextKey)

	trackURL := strings.TrimSpace(c.Query("url"))
	if trackURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "url is required"})
		return
	}

	profile, err := h.tracks.Delete(c.Request.Context(), externalID, trackURL)
	if err != nil {
		h.respondError(c, "audio track deletion failed", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type shareRequestPayload struct {
	TargetUserID string `json:"targetUserId"`
	ShareMessage string `json:"shareMessage"`
}

func (h *httpHandler) handleShareProfile(c *gin.Context) {
	externalID := c.GetString(externalIDContextKey)

	var request shareRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.TargetUserID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "targetUserId is required"})
		return
	}

	edge, err := h.sharing.Share(c.Request.Context(), externalID, request.TargetUserID, request.ShareMessage)
	if err != nil {
		h.respondError(c, "profile share failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":           edge.ID,
		"userId":       edge.UserID,
		"sharedBy":     edge.SharedBy,
		"profileType":  edge.ProfileType,
		"shareMessage": edge.ShareMessage,
		"shareDate":    edge.ShareDate,
	})
}

func (h *httpHandler) handleListSharedProfiles(c *gin.Context) {
	externalID := c.GetString(externalIDContextKey)
	page, limit := paginationParams(c)

	result, err := h.sharing.List(c.Request.Context(), externalID, page, limit)
	if err != nil {
		h.respondError(c, "shared profile listing failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) handleDeleteSharedProfile(c *gin.Context) {
	externalID := c.GetString(externalIDContextKey)

	if err := h.sharing.Delete(c.Request.Context(), externalID, c.Param("id")); err != nil {
		h.respondError(c, "shared profile deletion failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func paginationParams(c *gin.Context) (int, int) {
	page := profiles.DefaultPage
	if raw := c.Query("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			page = parsed
		}
	}
	limit := profiles.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	return page, limit
}

func (h *httpHandler) respondError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, users.ErrNotFound),
		errors.Is(err, profiles.ErrNotFound),
		errors.Is(err, sharing.ErrNotFound),
		errors.Is(err, tracks.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": err.Error()})
	case errors.Is(err, profiles.ErrValidation),
		errors.Is(err, sharing.ErrValidation),
		errors.Is(err, tracks.ErrValidation),
		errors.Is(err, users.ErrInvalidExternalID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
	case errors.Is(err, tracks.ErrStorage):
		h.logger.Error(message, zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "storage_unavailable"})
	default:
		h.logger.Error(message, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
