package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var (
	sqlInjectionPattern = regexp.MustCompile(`(?i)(union|select|insert|update|delete|drop|create|alter|exec|script|javascript|onerror|onload)`)
	xssPattern          = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)
	brandNamePattern    = regexp.MustCompile(`^[\p{L}\p{N} .,&'\-]+$`)
)

var knownPlatforms = map[string]bool{
	"twitter":   true,
	"reddit":    true,
	"news":      true,
	"facebook":  true,
	"instagram": true,
	"linkedin":  true,
}

type Config struct {
	MaxNameLength       int
	MaxKeywords         int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxNameLength == 0 {
		cfg.MaxNameLength = 200
	}
	if cfg.MaxKeywords == 0 {
		cfg.MaxKeywords = 50
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == "POST" || c.Method() == "PUT" {
			contentType := c.Get("Content-Type")
			if contentType != "" {
				allowed := false
				for _, allowedType := range cfg.AllowedContentTypes {
					if strings.Contains(contentType, allowedType) {
						allowed = true
						break
					}
				}
				if !allowed {
					return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
						"error": "Unsupported content type",
					})
				}
			}
		}

		path := c.Path()

		if strings.Contains(path, "/api/v1/brands") && c.Method() == "POST" {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			name, ok := req["name"].(string)
			if !ok || name == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Brand name is required and must be a string",
				})
			}

			if len(name) > cfg.MaxNameLength {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Brand name exceeds maximum length",
				})
			}

			if containsSQLInjection(name) || containsXSS(name) {
				cfg.Logger.Warn("Suspicious brand name rejected",
					zap.String("ip", c.IP()),
					zap.String("name", name),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid brand name",
				})
			}

			if !brandNamePattern.MatchString(name) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Brand name contains invalid characters",
				})
			}

			if keywords, ok := req["keywords"].([]interface{}); ok && len(keywords) > cfg.MaxKeywords {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Too many keywords",
				})
			}
		}

		if strings.Contains(path, "/api/v1/monitoring/start") {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			platforms, ok := req["platforms"].([]interface{})
			if !ok || len(platforms) == 0 {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "At least one platform is required",
				})
			}

			for _, p := range platforms {
				platform, ok := p.(string)
				if !ok || !knownPlatforms[strings.ToLower(platform)] {
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
						"error": "Unknown platform: " + sanitizeString(platform),
					})
				}
			}
		}

		return c.Next()
	}
}

func containsSQLInjection(input string) bool {
	return sqlInjectionPattern.MatchString(input)
}

func containsXSS(input string) bool {
	return xssPattern.MatchString(input)
}

func sanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")
	if len(input) > 64 {
		input = input[:64]
	}
	return input
}
