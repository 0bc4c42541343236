package dto

import (
	"strings"

	"github.com/labstack/echo/v4"
	"google.golang.org/protobuf/types/known/structpb"
)

type BidRequest struct {
	ProductID string  `param:"id" json:"-" validate:"required"`
	Price     float64 `json:"price" validate:"gt=0"`
}

// BidFromEchoContext binds the path id and body of a bid request.
func BidFromEchoContext(ctx echo.Context) (BidRequest, error) {
	var req BidRequest
	if err := ctx.Bind(&req); err != nil {
		return BidRequest{}, err
	}
	req.ProductID = strings.TrimSpace(req.ProductID)
	return req, nil
}

// BidFromGRPC reads a bid from a PlaceBid message.
func BidFromGRPC(msg *structpb.Struct) BidRequest {
	return BidRequest{
		ProductID: strings.TrimSpace(stringField(msg, "product_id")),
		Price:     numberField(msg, "price"),
	}
}

func (r *BidRequest) Validate() error {
	return check(r)
}
