package controller

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-auctions/app/dto"
	"github.com/vibast-solutions/ms-go-auctions/app/entity"
	"github.com/vibast-solutions/ms-go-auctions/app/service"
)

type ProductController struct {
	auctions *service.AuctionService
	catalog  *service.CatalogService
	logger   logrus.FieldLogger
}

// NewProductController constructs the HTTP product controller.
func NewProductController(auctions *service.AuctionService, catalog *service.CatalogService, logger logrus.FieldLogger) *ProductController {
	return &ProductController{auctions: auctions, catalog: catalog, logger: logger}
}

// Create lists a new product for the calling user.
func (c *ProductController) Create(ctx echo.Context) error {
	req, err := dto.CreateProductFromEchoContext(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	product, err := c.auctions.Create(ctx.Request().Context(), req.Name, req.Description, req.EndingAt)
	if err != nil {
		return writeError(ctx, c.logger, err)
	}
	return ctx.JSON(http.StatusCreated, product)
}

// Get returns a product and counts the caller as a viewer.
func (c *ProductController) Get(ctx echo.Context) error {
	product, err := c.auctions.GetDetail(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return writeError(ctx, c.logger, err)
	}
	return ctx.JSON(http.StatusOK, product)
}

// Update changes a product owned by the caller.
func (c *ProductController) Update(ctx echo.Context) error {
	req, err := dto.UpdateProductFromEchoContext(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	product, err := c.auctions.Update(ctx.Request().Context(), req.ID, req.ToEntity())
	if err != nil {
		return writeError(ctx, c.logger, err)
	}
	return ctx.JSON(http.StatusOK, product)
}

// Bid places a bid for the caller.
func (c *ProductController) Bid(ctx echo.Context) error {
	req, err := dto.BidFromEchoContext(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	product, err := c.auctions.Bid(ctx.Request().Context(), req.ProductID, req.Price)
	if err != nil {
		return writeError(ctx, c.logger, err)
	}
	return ctx.JSON(http.StatusOK, product)
}

func (c *ProductController) BidHistory(ctx echo.Context) error {
	bids, err := c.auctions.BidHistory(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return writeError(ctx, c.logger, err)
	}
	return ctx.JSON(http.StatusOK, map[string]interface{}{"bids": bids})
}

func (c *ProductController) EndingSoonest(ctx echo.Context) error {
	return c.list(ctx, c.catalog.ListEndingSoonest)
}

func (c *ProductController) MostViewed(ctx echo.Context) error {
	return c.list(ctx, c.catalog.ListMostViewed)
}

func (c *ProductController) MostExpensive(ctx echo.Context) error {
	return c.list(ctx, c.catalog.ListMostExpensive)
}

type listFunc func(ctx context.Context, page entity.Page) ([]entity.Product, error)

func (c *ProductController) list(ctx echo.Context, fetch listFunc) error {
	req, err := dto.ListFromEchoContext(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid query parameters"})
	}
	if err := req.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	page := req.ToPage()
	products, err := fetch(ctx.Request().Context(), page)
	if err != nil {
		return writeError(ctx, c.logger, err)
	}
	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"products": products,
		"offset":   page.Offset,
		"limit":    page.Limit,
	})
}
