package middleware

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

// requestLogFormat mirrors the keys of the JSON slog handler so request
// lines sit next to application logs.
const requestLogFormat = `{"time":"${time}","level":"${level}","msg":"request","op":"http",` +
	`"method":"${method}","path":"${path}","status":${status},"latency":"${latency}"}` + "\n"

// RequestLogger is a Fiber middleware that writes one JSON line per handled
// request to out.
func RequestLogger(out io.Writer) fiber.Handler {
	return logger.New(logger.Config{
		Format:     requestLogFormat,
		TimeFormat: time.RFC3339,
		Output:     out,
		CustomTags: map[string]logger.LogFunc{
			"level": func(output logger.Buffer, c *fiber.Ctx, _ *logger.Data, _ string) (int, error) {
				if c.Response().StatusCode() >= fiber.StatusInternalServerError {
					return output.WriteString("ERROR")
				}
				return output.WriteString("INFO")
			},
		},
	})
}
