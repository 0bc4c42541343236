package dto

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-auctions/app/entity"
	"google.golang.org/protobuf/types/known/structpb"
)

type CreateProductRequest struct {
	Name        string    `json:"name" validate:"required,max=200"`
	Description string    `json:"desc" validate:"max=5000"`
	EndingAt    time.Time `json:"ending_at" validate:"required"`
}

// CreateProductFromEchoContext binds and normalizes a create request.
func CreateProductFromEchoContext(ctx echo.Context) (CreateProductRequest, error) {
	var req CreateProductRequest
	if err := ctx.Bind(&req); err != nil {
		return CreateProductRequest{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	return req, nil
}

func (r *CreateProductRequest) Validate() error {
	return check(r)
}

// UpdateProductRequest carries optional fields; omitted ones stay unchanged.
type UpdateProductRequest struct {
	ID          string     `param:"id" json:"-" validate:"required"`
	Name        *string    `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"desc" validate:"omitempty,max=5000"`
	EndingAt    *time.Time `json:"ending_at"`
}

// UpdateProductFromEchoContext binds the path id and body of an update request.
func UpdateProductFromEchoContext(ctx echo.Context) (UpdateProductRequest, error) {
	var req UpdateProductRequest
	if err := ctx.Bind(&req); err != nil {
		return UpdateProductRequest{}, err
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	return req, nil
}

func (r *UpdateProductRequest) Validate() error {
	return check(r)
}

// ToEntity converts the request into a partial product update.
func (r *UpdateProductRequest) ToEntity() entity.ProductUpdate {
	return entity.ProductUpdate{
		Name:        r.Name,
		Description: r.Description,
		EndingAt:    r.EndingAt,
	}
}

type GetProductRequest struct {
	ProductID string `validate:"required"`
}

// GetProductFromGRPC reads a GetProduct message.
func GetProductFromGRPC(msg *structpb.Struct) GetProductRequest {
	return GetProductRequest{ProductID: strings.TrimSpace(stringField(msg, "product_id"))}
}

func (r *GetProductRequest) Validate() error {
	return check(r)
}
