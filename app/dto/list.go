package dto

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-auctions/app/entity"
	"google.golang.org/protobuf/types/known/structpb"
)

// Listing views.
const (
	ViewEndingSoonest = "ending_soonest"
	ViewMostViewed    = "most_viewed"
	ViewMostExpensive = "most_expensive"
)

type ListRequest struct {
	View  string `query:"view" validate:"omitempty,oneof=ending_soonest most_viewed most_expensive"`
	Page  int    `query:"page" validate:"omitempty,min=1"`
	Limit int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

// ListFromEchoContext binds paging query parameters.
func ListFromEchoContext(ctx echo.Context) (ListRequest, error) {
	var req ListRequest
	if err := ctx.Bind(&req); err != nil {
		return ListRequest{}, err
	}
	req.View = strings.TrimSpace(req.View)
	return req, nil
}

// ListFromGRPC reads a ListProducts message. A missing view means ending soonest.
func ListFromGRPC(msg *structpb.Struct) ListRequest {
	req := ListRequest{
		View:  strings.TrimSpace(stringField(msg, "view")),
		Page:  int(numberField(msg, "page")),
		Limit: int(numberField(msg, "limit")),
	}
	if req.View == "" {
		req.View = ViewEndingSoonest
	}
	return req
}

func (r *ListRequest) Validate() error {
	return check(r)
}

// ToPage converts page and limit into an offset window with defaults applied.
func (r *ListRequest) ToPage() entity.Page {
	return entity.NewPage(r.Page, r.Limit)
}

func stringField(msg *structpb.Struct, name string) string {
	return msg.GetFields()[name].GetStringValue()
}

func numberField(msg *structpb.Struct, name string) float64 {
	return msg.GetFields()[name].GetNumberValue()
}
