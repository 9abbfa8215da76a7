package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/catalog-service/internal/application/lifecycle"
	"github.com/avatarctic/catalog-service/internal/core/domain/product"
)

func (s *Server) listProducts(c echo.Context) error {
	products, err := s.productService.FindAll(c.Request().Context())
	if err != nil {
		return s.productError(c, err)
	}
	return c.JSON(http.StatusOK, products)
}

func (s *Server) getProduct(c echo.Context) error {
	p, err := s.productService.FindOne(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.productError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) createProduct(c echo.Context) error {
	var req product.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := s.productService.Create(c.Request().Context(), &req)
	if err != nil {
		return s.productError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (s *Server) updateProduct(c echo.Context) error {
	var req product.UpdateProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := s.productService.Update(c.Request().Context(), c.Param("id"), &req)
	if err != nil {
		return s.productError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) deleteProduct(c echo.Context) error {
	if err := s.productService.Remove(c.Request().Context(), c.Param("id")); err != nil {
		return s.productError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// productError maps catalog failures onto HTTP statuses. Internal details of
// write failures stay in the logs.
func (s *Server) productError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, product.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, product.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	case errors.Is(err, product.ErrDuplicateSKU):
		return echo.NewHTTPError(http.StatusConflict, "sku already exists")
	case errors.Is(err, product.ErrPoolExhausted):
		c.Response().Header().Set("Retry-After", "1")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "database busy, retry later")
	case errors.Is(err, lifecycle.ErrDraining):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "service is shutting down")
	default:
		s.logger.WithField("path", c.Path()).WithError(err).Error("catalog request failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
