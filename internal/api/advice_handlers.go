package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"careerbot/internal/apperr"
	"careerbot/internal/models"
	"careerbot/internal/service/advisor"
)

type adviceRequest struct {
	Interest   string `form:"interest" json:"interest"`
	ResumeText string `form:"resume_text" json:"resume_text"`
	Topic      string `form:"topic" json:"topic"`
	Major      string `form:"major" json:"major"`
	Role       string `form:"role" json:"role"`
}

func (r adviceRequest) field(name string) string {
	switch name {
	case "interest":
		return r.Interest
	case "resume_text":
		return r.ResumeText
	case "topic":
		return r.Topic
	case "major":
		return r.Major
	case "role":
		return r.Role
	}
	return ""
}

type chatRequest struct {
	Message   string `form:"message" json:"message"`
	FeatureID string `form:"feature_id" json:"feature_id"`
}

func (h *Handler) careerNames(c *gin.Context) {
	subject, ok := h.subject(c)
	if !ok {
		return
	}
	var req adviceRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid request"})
		return
	}
	ans, err := h.advisor.CareerNames(c.Request.Context(), subject, req.Interest)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"insights":     ans.Reply,
		"failed":       ans.Failed,
		"chat_history": ans.History,
	})
}

// adviceRoute serves a structured feature whose input arrives in field and
// whose reply is returned under key.
func (h *Handler) adviceRoute(feature models.Feature, field, key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, ok := h.subject(c)
		if !ok {
			return
		}
		var req adviceRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid request"})
			return
		}
		h.respondAdvice(c, subject, feature, req.field(field), key)
	}
}

// resumeFeedback accepts resume text or an uploaded resume_file. Uploaded
// content takes precedence over the text field.
func (h *Handler) resumeFeedback(c *gin.Context) {
	subject, ok := h.subject(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+(1<<20))

	var req adviceRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid request"})
		return
	}
	text := req.ResumeText

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fileHeader, err := c.FormFile("resume_file")
		if err == nil && fileHeader.Filename != "" {
			file, err := fileHeader.Open()
			if err != nil {
				h.writeError(c, &apperr.FileProcessingError{Message: "Error processing file", Err: err})
				return
			}
			defer file.Close()
			extracted, err := h.extractor.Extract(c.Request.Context(), fileHeader.Filename, file)
			if err != nil {
				h.writeError(c, err)
				return
			}
			text = extracted
		}
	}
	h.respondAdvice(c, subject, models.FeatureResumeFeedback, text, "feedback")
}

func (h *Handler) respondAdvice(c *gin.Context, subject models.Subject, feature models.Feature, input, key string) {
	ans, err := h.advisor.Advise(c.Request.Context(), subject, feature, input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, answerBody(key, ans))
}

func (h *Handler) chat(c *gin.Context) {
	subject, ok := h.subject(c)
	if !ok {
		return
	}
	var req chatRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid request"})
		return
	}
	feature, err := parseFeature(req.FeatureID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ans, err := h.advisor.Chat(c.Request.Context(), subject, feature, req.Message)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, answerBody("response", ans))
}

func (h *Handler) clearChat(c *gin.Context) {
	subject, ok := h.subject(c)
	if !ok {
		return
	}
	var req chatRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid request"})
		return
	}
	feature, err := parseFeature(req.FeatureID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.advisor.Clear(c.Request.Context(), subject, feature); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) chatHistory(c *gin.Context) {
	subject, ok := h.subject(c)
	if !ok {
		return
	}
	var req chatRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid request"})
		return
	}
	feature, err := parseFeature(req.FeatureID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	turns, err := h.advisor.History(c.Request.Context(), subject, feature)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat_history": turns})
}

func answerBody(key string, ans advisor.Answer) gin.H {
	return gin.H{
		key:            ans.Reply,
		"formatted":    ans.Formatted,
		"failed":       ans.Failed,
		"chat_history": ans.History,
	}
}
