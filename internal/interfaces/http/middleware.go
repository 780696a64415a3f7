package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HeaderRequestID se propaga en la respuesta y en el log.
const HeaderRequestID = "X-Request-ID"

// httpRecorder lo implementa metrics.Metrics.
type httpRecorder interface {
	RecordHTTP(method, route string, status int)
}

// RequestLogger registra cada petición con su duración y asigna un request id.
// Los errores que llegan hasta aquí se resuelven con el ErrorHandler de la app para
// registrar el código final.
func RequestLogger(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		reqID := c.Get(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(HeaderRequestID, reqID)

		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		ev := log.Info()
		if status >= fiber.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("request_id", reqID).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("actor", GetUserID(c)).
			Msg("http")
		return nil
	}
}

// RequestMetrics cuenta peticiones por ruta y código.
func RequestMetrics(rec httpRecorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			// El ErrorHandler todavía no escribió la respuesta.
			if ferr, ok := err.(*fiber.Error); ok {
				status = ferr.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		rec.RecordHTTP(c.Method(), c.Route().Path, status)
		return err
	}
}
