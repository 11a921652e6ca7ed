package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStoryForm(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "Про лису"))
	require.NoError(t, mw.WriteField("content", "Текст истории"))
	require.NoError(t, mw.WriteField("tags", "лес, звери"))

	header, err := mw.CreateFormFile("header_image", "cover.png")
	require.NoError(t, err)
	_, err = header.Write([]byte("png-bytes"))
	require.NoError(t, err)

	inline, err := mw.CreateFormFile("images", "one.png")
	require.NoError(t, err)
	_, err = inline.Write([]byte("png-bytes"))
	require.NoError(t, err)

	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/stories", &body)
	c.Request.Header.Set("Content-Type", mw.FormDataContentType())

	h := &StoryHandler{}
	input, closers, ok := h.parseStoryForm(c)
	require.True(t, ok)

	assert.Equal(t, "Про лису", input.Title)
	assert.Equal(t, "Текст истории", input.Content)
	assert.Equal(t, []string{"лес", "звери"}, input.Tags)
	require.NotNil(t, input.HeaderImage)
	assert.Equal(t, "cover.png", input.HeaderImage.Filename)
	require.Len(t, input.InlineImages, 1)

	// Каждый открытый файл отдается вызывающему на закрытие
	require.Len(t, closers, 2)
	for _, f := range closers {
		assert.NoError(t, f.Close())
	}
}
