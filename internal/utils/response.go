package utils

import "github.com/gofiber/fiber/v2"

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

type ErrorBody struct {
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewMeta builds pagination metadata for a page of a list of total rows.
func NewMeta(page, limit int, total int64) *Meta {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	return &Meta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}
}

func Success(c *fiber.Ctx, data interface{}, message string, statusCode ...int) error {
	code := fiber.StatusOK
	if len(statusCode) > 0 {
		code = statusCode[0]
	}

	resp := Response{
		Success: true,
		Message: message,
		Data:    data,
	}

	return c.Status(code).JSON(resp)
}

func SuccessWithMeta(c *fiber.Ctx, data interface{}, meta *Meta, message string) error {
	resp := Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func Error(c *fiber.Ctx, message string, statusCode ...int) error {
	code := fiber.StatusBadRequest
	if len(statusCode) > 0 {
		code = statusCode[0]
	}

	resp := Response{
		Success: false,
		Error:   &ErrorBody{Message: message},
	}

	return c.Status(code).JSON(resp)
}

// ErrorWithCode writes an error envelope carrying a machine-readable code and
// optional per-field messages.
func ErrorWithCode(c *fiber.Ctx, statusCode int, code, message string, fields map[string]string) error {
	resp := Response{
		Success: false,
		Error: &ErrorBody{
			Message: message,
			Code:    code,
			Fields:  fields,
		},
	}

	return c.Status(statusCode).JSON(resp)
}
