package controller

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// SearchIndexAdmin manages the product search index.
type SearchIndexAdmin interface {
	Name() string
	Create(ctx context.Context) error
	Drop(ctx context.Context) error
}

type AdminController struct {
	index  SearchIndexAdmin
	logger logrus.FieldLogger
}

// NewAdminController constructs the HTTP admin controller.
func NewAdminController(index SearchIndexAdmin, logger logrus.FieldLogger) *AdminController {
	return &AdminController{index: index, logger: logger}
}

func (c *AdminController) CreateSearchIndex(ctx echo.Context) error {
	if err := c.index.Create(ctx.Request().Context()); err != nil {
		return writeError(ctx, c.logger, err)
	}
	c.logger.WithField("index", c.index.Name()).Info("search index created")
	return ctx.JSON(http.StatusCreated, map[string]string{"message": "search index created", "index": c.index.Name()})
}

func (c *AdminController) DropSearchIndex(ctx echo.Context) error {
	if err := c.index.Drop(ctx.Request().Context()); err != nil {
		return writeError(ctx, c.logger, err)
	}
	c.logger.WithField("index", c.index.Name()).Info("search index dropped")
	return ctx.JSON(http.StatusOK, map[string]string{"message": "search index dropped", "index": c.index.Name()})
}
