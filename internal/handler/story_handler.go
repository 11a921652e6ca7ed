package handler

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"skazka-server/internal/models"
	"skazka-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Максимальный размер multipart-формы при отправке истории (64 MiB).
const maxSubmissionFormSize = 64 << 20

// StoryHandler handles HTTP requests for the story lifecycle and browsing.
type StoryHandler struct {
	storyService service.StoryService
	likeService  service.LikeService
	auth         *AuthHandler
}

func NewStoryHandler(storyService service.StoryService, likeService service.LikeService, auth *AuthHandler) *StoryHandler {
	return &StoryHandler{
		storyService: storyService,
		likeService:  likeService,
		auth:         auth,
	}
}

// RegisterRoutes вешает публичные и пользовательские маршруты историй.
func (h *StoryHandler) RegisterRoutes(router *gin.Engine) {
	stories := router.Group("/stories")
	{
		stories.GET("", h.auth.OptionalAuthMiddleware(), h.listPublished)
		stories.GET("/:story_id", h.auth.OptionalAuthMiddleware(), h.getStory)

		authed := stories.Group("", h.auth.AuthMiddleware())
		{
			authed.POST("", h.submit)
			authed.PUT("/:story_id", h.edit)
			authed.DELETE("/:story_id", h.deleteStory)
			authed.POST("/:story_id/like", h.like)
			authed.DELETE("/:story_id/like", h.unlike)
		}
	}

	api := router.Group("/api", h.auth.AuthMiddleware())
	{
		api.GET("/me/stories", h.listMine)
		api.GET("/me/likes", h.listLiked)
	}

	taxonomy := router.Group("/taxonomy")
	{
		taxonomy.GET("/tags", h.listTags)
		taxonomy.GET("/categories", h.listCategories)
	}
}

func storyIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("story_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Code: models.ErrCodeBadRequest, Message: "Invalid story ID"})
		return uuid.Nil, false
	}
	return id, true
}

// parseStoryForm собирает StoryInput из multipart-формы. Возвращает открытые
// файловые дескрипторы, их обязан закрыть вызывающий.
func (h *StoryHandler) parseStoryForm(c *gin.Context) (service.StoryInput, []io.Closer, bool) {
	var input service.StoryInput

	if err := c.Request.ParseMultipartForm(maxSubmissionFormSize); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Code: models.ErrCodeBadRequest, Message: "Invalid multipart form: " + err.Error()})
		return input, nil, false
	}

	input.Title = c.PostForm("title")
	input.Content = c.PostForm("content")
	if desc := c.PostForm("description"); desc != "" {
		input.Description = &desc
	}
	if category := c.PostForm("category"); category != "" {
		input.Category = &category
	}
	if rawTags := c.PostForm("tags"); rawTags != "" {
		for _, tag := range strings.Split(rawTags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				input.Tags = append(input.Tags, tag)
			}
		}
	}

	form := c.Request.MultipartForm

	var closers []io.Closer
	openOne := func(fh *multipart.FileHeader) (*service.MediaUpload, bool) {
		f, err := fh.Open()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
				Code: models.ErrCodeBadRequest, Message: "Cannot read uploaded file " + fh.Filename})
			return nil, false
		}
		closers = append(closers, f)
		return &service.MediaUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        f,
		}, true
	}

	if headers := form.File["header_image"]; len(headers) > 0 {
		upload, ok := openOne(headers[0])
		if !ok {
			closeUploads(closers)
			return input, nil, false
		}
		input.HeaderImage = upload
	}
	for _, fh := range form.File["images"] {
		upload, ok := openOne(fh)
		if !ok {
			closeUploads(closers)
			return input, nil, false
		}
		input.InlineImages = append(input.InlineImages, *upload)
	}
	if audios := form.File["audio"]; len(audios) > 0 {
		upload, ok := openOne(audios[0])
		if !ok {
			closeUploads(closers)
			return input, nil, false
		}
		input.Audio = upload
	}

	return input, closers, true
}

func closeUploads(closers []io.Closer) {
	for _, f := range closers {
		_ = f.Close()
	}
}

func (h *StoryHandler) submit(c *gin.Context) {
	userID := c.MustGet(ctxKeyUserID).(uuid.UUID)
	username := c.GetString(ctxKeyUsername)

	input, closers, ok := h.parseStoryForm(c)
	if !ok {
		return
	}
	defer closeUploads(closers)

	story, err := h.storyService.Submit(c.Request.Context(), userID, username, input)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	storySubmissionsTotal.Inc()
	c.JSON(http.StatusCreated, toStoryResponse(story, true))
}

func (h *StoryHandler) edit(c *gin.Context) {
	storyID, ok := storyIDParam(c)
	if !ok {
		return
	}
	userID := c.MustGet(ctxKeyUserID).(uuid.UUID)
	roles, _ := c.Get(ctxKeyRoles)
	isAdmin := false
	if roleList, ok := roles.([]string); ok {
		isAdmin = models.HasRole(roleList, models.RoleAdmin)
	}

	input, closers, ok := h.parseStoryForm(c)
	if !ok {
		return
	}
	defer closeUploads(closers)

	story, err := h.storyService.Edit(c.Request.Context(), userID, isAdmin, storyID, input)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toStoryResponse(story, true))
}

func (h *StoryHandler) deleteStory(c *gin.Context) {
	storyID, ok := storyIDParam(c)
	if !ok {
		return
	}
	userID := c.MustGet(ctxKeyUserID).(uuid.UUID)
	roles, _ := c.Get(ctxKeyRoles)
	isAdmin := false
	if roleList, ok := roles.([]string); ok {
		isAdmin = models.HasRole(roleList, models.RoleAdmin)
	}

	if err := h.storyService.Delete(c.Request.Context(), userID, isAdmin, storyID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *StoryHandler) getStory(c *gin.Context) {
	storyID, ok := storyIDParam(c)
	if !ok {
		return
	}

	var viewerID *uuid.UUID
	if raw, exists := c.Get(ctxKeyUserID); exists {
		if id, ok := raw.(uuid.UUID); ok {
			viewerID = &id
		}
	}
	isAdmin := false
	if roles, exists := c.Get(ctxKeyRoles); exists {
		if roleList, ok := roles.([]string); ok {
			isAdmin = models.HasRole(roleList, models.RoleAdmin)
		}
	}

	story, err := h.storyService.GetPublished(c.Request.Context(), storyID, viewerID, isAdmin)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toStoryResponse(story, true))
}

func (h *StoryHandler) listPublished(c *gin.Context) {
	params := service.StoryListParams{
		Cursor: c.Query("cursor"),
		Limit:  intQuery(c, "limit"),
	}
	if tag := c.Query("tag"); tag != "" {
		params.Tag = &tag
	}
	if category := c.Query("category"); category != "" {
		params.Category = &category
	}
	if c.Query("featured") == "true" {
		featured := true
		params.Featured = &featured
	}

	stories, nextCursor, err := h.storyService.ListPublished(c.Request.Context(), params)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toStoryListResponse(stories, nextCursor))
}

func (h *StoryHandler) listMine(c *gin.Context) {
	userID := c.MustGet(ctxKeyUserID).(uuid.UUID)

	stories, nextCursor, err := h.storyService.ListByAuthor(c.Request.Context(), userID, c.Query("cursor"), intQuery(c, "limit"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toStoryListResponse(stories, nextCursor))
}

func (h *StoryHandler) like(c *gin.Context) {
	storyID, ok := storyIDParam(c)
	if !ok {
		return
	}
	userID := c.MustGet(ctxKeyUserID).(uuid.UUID)

	if err := h.likeService.LikeStory(c.Request.Context(), userID, storyID); err != nil {
		handleServiceError(c, err)
		return
	}

	likeTogglesTotal.WithLabelValues("like").Inc()
	c.Status(http.StatusNoContent)
}

func (h *StoryHandler) unlike(c *gin.Context) {
	storyID, ok := storyIDParam(c)
	if !ok {
		return
	}
	userID := c.MustGet(ctxKeyUserID).(uuid.UUID)

	if err := h.likeService.UnlikeStory(c.Request.Context(), userID, storyID); err != nil {
		handleServiceError(c, err)
		return
	}

	likeTogglesTotal.WithLabelValues("unlike").Inc()
	c.Status(http.StatusNoContent)
}

func (h *StoryHandler) listLiked(c *gin.Context) {
	userID := c.MustGet(ctxKeyUserID).(uuid.UUID)

	stories, err := h.likeService.ListLikedStories(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toStoryListResponse(stories, ""))
}

func (h *StoryHandler) listTags(c *gin.Context) {
	entries, err := h.storyService.ListTags(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaxonomyResponse(entries))
}

func (h *StoryHandler) listCategories(c *gin.Context) {
	entries, err := h.storyService.ListCategories(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaxonomyResponse(entries))
}

func toTaxonomyResponse(entries []models.TaxonomyEntry) taxonomyResponse {
	out := make([]taxonomyEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, taxonomyEntry{Name: e.Name, LastUsed: e.LastUsed})
	}
	return taxonomyResponse{Entries: out}
}

func intQuery(c *gin.Context, name string) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
