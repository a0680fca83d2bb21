package handler

import (
	"mime/multipart"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"aigrader/internal/model"
	"aigrader/internal/service"
)

// answerKeyResponse is returned after a successful answer key upload.
type answerKeyResponse struct {
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	StorageKey string `json:"storage_key"`
}

// UploadAnswerKey replaces the active answer key.
//
// @Summary  Upload the answer key
// @Tags     grading
// @Accept   multipart/form-data
// @Produce  json
// @Param    file  formData  file  true  "Answer key (.docx or .pdf)"
// @Success  200  {object}  answerKeyResponse
// @Failure  400  {object}  errorPayload
// @Failure  413  {object}  errorPayload
// @Failure  415  {object}  errorPayload
// @Failure  422  {object}  errorPayload
// @Failure  500  {object}  errorPayload
// @Router   /api/upload_answer_key/ [post]
func UploadAnswerKey(svc service.GradingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeUploadError(c, fiber.StatusBadRequest, fh.Filename, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		key, err := svc.UploadAnswerKey(c.UserContext(), f, fh.Filename, contentType(fh), fh.Size)
		if err != nil {
			status, code, msg := classify(err)
			return writeUploadError(c, status, fh.Filename, code, msg)
		}
		return c.Status(fiber.StatusOK).JSON(answerKeyResponse{
			Filename:   key.Filename,
			Status:     "uploaded",
			Message:    "Answer key uploaded successfully!",
			StorageKey: key.StorageKey,
		})
	}
}

// UploadSubmission grades a student submission against the answer key and
// records the score for user_id.
//
// @Summary  Upload and grade a submission
// @Tags     grading
// @Accept   multipart/form-data
// @Produce  json
// @Param    file     formData  file     true  "Submission (.docx or .pdf)"
// @Param    user_id  formData  integer  true  "Submitting user"
// @Success  200  {object}  service.SubmissionResult
// @Failure  400  {object}  errorPayload
// @Failure  404  {object}  errorPayload
// @Failure  409  {object}  errorPayload
// @Failure  413  {object}  errorPayload
// @Failure  415  {object}  errorPayload
// @Failure  422  {object}  errorPayload
// @Failure  500  {object}  errorPayload
// @Failure  502  {object}  errorPayload
// @Failure  504  {object}  errorPayload
// @Router   /api/upload/ [post]
func UploadSubmission(svc service.GradingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		userID, err := strconv.ParseInt(c.FormValue("user_id"), 10, 64)
		if err != nil {
			return writeUploadError(c, fiber.StatusBadRequest, fh.Filename, "INVALID_USER_ID", "user_id must be a positive integer")
		}

		f, err := fh.Open()
		if err != nil {
			return writeUploadError(c, fiber.StatusBadRequest, fh.Filename, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		res, err := svc.UploadSubmission(c.UserContext(), userID, f, fh.Filename, contentType(fh), fh.Size)
		if err != nil {
			status, code, msg := classify(err)
			return writeUploadError(c, status, fh.Filename, code, msg)
		}
		return c.Status(fiber.StatusOK).JSON(res)
	}
}

// ListComparisons returns the user's graded submissions, newest first.
//
// @Summary  List a user's comparisons
// @Tags     grading
// @Produce  json
// @Param    user_id  path  integer  true  "User ID"
// @Success  200  {array}   model.Comparison
// @Failure  400  {object}  errorPayload
// @Failure  500  {object}  errorPayload
// @Router   /api/comparisons/{user_id} [get]
func ListComparisons(svc service.GradingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := strconv.ParseInt(c.Params("user_id"), 10, 64)
		if err != nil || userID <= 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_USER_ID", "invalid user id")
		}

		items, err := svc.ListComparisons(c.UserContext(), userID)
		if err != nil {
			status, code, msg := classify(err)
			return writeError(c, status, code, msg)
		}
		if items == nil {
			items = []model.Comparison{}
		}
		return c.JSON(items)
	}
}

func contentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
