package handler

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	models "ecofinds/model"
	"ecofinds/service"
)

// --- request shapes ---

type addItemReq struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity,omitempty"`
}

type quantityReq struct {
	Quantity *int `json:"quantity,omitempty"`
}

type checkoutReq struct {
	PaymentMethod string `json:"paymentMethod"`
}

type createProductReq struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Price       decimal.Decimal `json:"price"`
}

// --- response shapes ---

type productJSON struct {
	ID          string       `json:"_id"`
	Title       string       `json:"title,omitempty"`
	Price       *json.Number `json:"price,omitempty"`
	Seller      string       `json:"seller,omitempty"`
	Description string       `json:"description,omitempty"`
	Category    string       `json:"category,omitempty"`
	CreatedAt   *time.Time   `json:"createdAt,omitempty"`
}

type cartLineJSON struct {
	ProductID string      `json:"productId"`
	Quantity  int         `json:"quantity"`
	Product   productJSON `json:"product"`
	Available bool        `json:"available"`
}

type orderItemJSON struct {
	Product   string      `json:"product"`
	Title     string      `json:"title"`
	Quantity  int         `json:"quantity"`
	UnitPrice json.Number `json:"unitPrice"`
}

type orderJSON struct {
	ID            string          `json:"_id"`
	User          string          `json:"user"`
	Items         []orderItemJSON `json:"items"`
	Total         json.Number     `json:"total"`
	PaymentMethod string          `json:"paymentMethod"`
	PaymentStatus string          `json:"paymentStatus"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func money(d decimal.Decimal) json.Number { return json.Number(d.String()) }

func toProductJSON(p models.Product) productJSON {
	price := money(p.Price)
	created := p.CreatedAt
	return productJSON{
		ID:          p.ID,
		Title:       p.Title,
		Price:       &price,
		Seller:      p.SellerID,
		Description: p.Description,
		Category:    p.Category,
		CreatedAt:   &created,
	}
}

func toCartJSON(lines []service.CartLine) []cartLineJSON {
	out := make([]cartLineJSON, 0, len(lines))
	for _, l := range lines {
		line := cartLineJSON{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Product:   productJSON{ID: l.ProductID},
		}
		if l.Product != nil {
			line.Product = toProductJSON(*l.Product)
			line.Available = true
		}
		out = append(out, line)
	}
	return out
}

func toOrderJSON(o models.Order) orderJSON {
	out := orderJSON{
		ID:            o.ID,
		User:          o.UserID,
		Items:         make([]orderItemJSON, 0, len(o.Items)),
		Total:         money(o.Total),
		PaymentMethod: string(o.PaymentMethod),
		PaymentStatus: string(o.PaymentStatus),
		CreatedAt:     o.CreatedAt,
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, orderItemJSON{
			Product:   it.ProductID,
			Title:     it.Title,
			Quantity:  it.Quantity,
			UnitPrice: money(it.UnitPrice),
		})
	}
	return out
}
