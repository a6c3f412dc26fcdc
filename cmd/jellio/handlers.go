package main

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/doingodswork/jellio/pkg/addon"
	"github.com/doingodswork/jellio/pkg/format"
	"github.com/doingodswork/jellio/pkg/jellyfin"
	"github.com/doingodswork/jellio/pkg/stremio"
)

func healthHandler(c *fiber.Ctx) error {
	return c.SendString("OK")
}

func createManifestHandler(a *addon.Addon, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, userData := requestUser(c)
		manifest, err := a.Manifest(c.Context(), user, userData)
		if err != nil {
			return sendError(c, err, logger)
		}
		return c.JSON(manifest)
	}
}

// createCatalogHandler handles requests with and without the "extra" path segment.
func createCatalogHandler(a *addon.Addon, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := requestUser(c)
		metas, err := a.Catalog(c.Context(), user, c.Params("type"), c.Params("id"), c.Params("extra"))
		if err != nil {
			return sendError(c, err, logger)
		}
		return c.JSON(stremio.CatalogResponse{Metas: metas})
	}
}

func createMetaHandler(a *addon.Addon, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := requestUser(c)
		meta, err := a.Meta(c.Context(), user, c.Params("type"), c.Params("id"))
		if err != nil {
			return sendError(c, err, logger)
		}
		return c.JSON(stremio.MetaResponse{Meta: meta})
	}
}

// createStreamHandler dispatches by ID format:
// "source:<guid>" for items of the catalogs, "tt123" for movies and "tt123:1:2" for episodes.
func createStreamHandler(a *addon.Addon, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := requestUser(c)
		stremioType := c.Params("type")
		id := c.Params("id")

		var streams []stremio.StreamItem
		var err error
		switch {
		case strings.HasPrefix(strings.ToLower(id), format.IDPrefix):
			streams, err = a.StreamsByID(c.Context(), user, id)
		case strings.HasPrefix(id, "tt"):
			idParts := strings.Split(id, ":")
			switch {
			case stremioType == format.TypeMovie && len(idParts) == 1:
				streams, err = a.StreamsByIMDbMovie(c.Context(), user, id)
			case stremioType == format.TypeSeries && len(idParts) == 3:
				season, seasonErr := strconv.Atoi(idParts[1])
				episode, episodeErr := strconv.Atoi(idParts[2])
				if seasonErr != nil || episodeErr != nil {
					return c.SendStatus(fiber.StatusBadRequest)
				}
				streams, err = a.StreamsByIMDbEpisode(c.Context(), user, idParts[0], season, episode)
			default:
				return c.SendStatus(fiber.StatusNotFound)
			}
		default:
			return c.SendStatus(fiber.StatusNotFound)
		}
		if err != nil {
			return sendError(c, err, logger)
		}
		return c.JSON(stremio.StreamResponse{Streams: streams})
	}
}

func createProgressHandler(a *addon.Addon, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := requestUser(c)
		var req addon.ProgressRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return sendJSONError(c, fiber.StatusBadRequest, "Invalid request body")
		}
		if err := a.ReportProgress(c.Context(), user, req); err != nil {
			return sendPlaybackError(c, err, logger)
		}
		return c.SendStatus(fiber.StatusOK)
	}
}

func createStopHandler(a *addon.Addon, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := requestUser(c)
		var req addon.StopRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return sendJSONError(c, fiber.StatusBadRequest, "Invalid request body")
		}
		if err := a.ReportStop(c.Context(), user, req); err != nil {
			return sendPlaybackError(c, err, logger)
		}
		return c.SendStatus(fiber.StatusOK)
	}
}

// requestUser returns what the auth middleware stored in the request locals.
func requestUser(c *fiber.Ctx) (jellyfin.User, addon.UserData) {
	user, _ := c.Locals(localsUser).(jellyfin.User)
	userData, _ := c.Locals(localsUserData).(addon.UserData)
	return user, userData
}

func sendError(c *fiber.Ctx, err error, logger *zap.Logger) error {
	switch {
	case errors.Is(err, addon.ErrNotFound):
		return c.SendStatus(fiber.StatusNotFound)
	case errors.Is(err, addon.ErrBadRequest):
		return sendJSONError(c, fiber.StatusBadRequest, err.Error())
	default:
		logger.Error("Couldn't handle request", zap.Error(err), zap.String("route", c.Route().Path))
		return c.SendStatus(fiber.StatusInternalServerError)
	}
}

// sendPlaybackError always responds with a JSON body.
func sendPlaybackError(c *fiber.Ctx, err error, logger *zap.Logger) error {
	switch {
	case errors.Is(err, addon.ErrNotFound):
		return sendJSONError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, addon.ErrBadRequest):
		return sendJSONError(c, fiber.StatusBadRequest, err.Error())
	default:
		logger.Error("Couldn't handle playback report", zap.Error(err), zap.String("route", c.Route().Path))
		return sendJSONError(c, fiber.StatusInternalServerError, "Internal server error")
	}
}

func sendJSONError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
