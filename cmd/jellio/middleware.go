package main

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/doingodswork/jellio/pkg/jellyfin"
	"github.com/doingodswork/jellio/pkg/metrics"
)

// Keys for fiber's request locals
const (
	localsUser     = "user"
	localsUserData = "userData"
)

type tokenTester interface {
	TestToken(ctx context.Context, token string) (jellyfin.User, error)
}

// createAuthMiddleware creates a middleware that decodes the user data and checks the Jellyfin access token in it.
// The user and the user data are stored in the request locals.
func createAuthMiddleware(jellyfinClient tokenTester, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		udString := c.Params("userData", "")
		if udString == "" {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		userData, err := decodeUserData(udString, logger)
		if err != nil {
			// It's most likely a client-side encoding error
			return c.SendStatus(fiber.StatusBadRequest)
			// The error is already logged by decodeUserData
		}
		if userData.AuthToken == "" {
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		user, err := jellyfinClient.TestToken(c.Context(), userData.AuthToken)
		if errors.Is(err, jellyfin.ErrInvalidToken) {
			return c.SendStatus(fiber.StatusForbidden)
		} else if err != nil {
			logger.Error("Couldn't test token", zap.Error(err))
			return c.SendStatus(fiber.StatusBadGateway)
		}

		c.Locals(localsUser, user)
		c.Locals(localsUserData, userData)
		return c.Next()
	}
}

// createLoggingMiddleware creates a middleware that logs and counts each request.
// Only the route is logged, because the path contains the user data with the access token.
func createLoggingMiddleware(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				status = fiberErr.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		metrics.RecordRequest(route, status)
		logger.Debug("Handled request",
			zap.String("method", c.Method()),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)))
		return err
	}
}
