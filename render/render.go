// Package render turns recommendation items into HTML widget markup.
package render

import (
	"fmt"
	"html/template"
	"io"
	"strconv"

	recsys "github.com/deeplooplabs/recsys-client"
)

// PlaceholderImage is shown for items without an image_url
const PlaceholderImage = "/static/images/placeholder.png"

// EmptyMessage is rendered when there is nothing to recommend
const EmptyMessage = "No recommendations available"

const widgetTemplate = `<div id="{{.ContainerID}}" class="recommendations">
{{- if .Units}}
{{- range .Units}}
  <div class="recommendation-item" data-item-id="{{.ID}}">
    <a class="recommendation-link" href="{{.ClickURL}}">
      <img src="{{.ImageURL}}" alt="{{.Name}}" loading="lazy">
      <h3 class="item-name">{{.Name}}</h3>
      <p class="item-category">{{.Category}}</p>
      <p class="item-price">${{.Price}}</p>
      {{- if .Rating}}
      <p class="item-rating">&#9733; {{.Rating}}</p>
      {{- end}}
    </a>
    <button type="button" class="add-to-cart" data-item-id="{{.ID}}">Add to Cart</button>
  </div>
{{- end}}
{{- else}}
  <p class="no-recommendations">{{.Empty}}</p>
{{- end}}
</div>
`

// Renderer renders recommendation widgets
type Renderer struct {
	tmpl     *template.Template
	clickURL func(itemID int64) string
}

// Option configures the Renderer
type Option func(*Renderer)

// WithClickURL sets the link target of each rendered item. The target is
// expected to record the click and then navigate to the product.
func WithClickURL(fn func(itemID int64) string) Option {
	return func(r *Renderer) {
		r.clickURL = fn
	}
}

// New creates a Renderer
func New(opts ...Option) *Renderer {
	r := &Renderer{
		tmpl:     template.Must(template.New("widget").Parse(widgetTemplate)),
		clickURL: DefaultClickURL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultClickURL links to the widget server's click-tracking route
func DefaultClickURL(itemID int64) string {
	return "/widgets/click/" + strconv.FormatInt(itemID, 10)
}

type widgetView struct {
	ContainerID string
	Units       []unitView
	Empty       string
}

type unitView struct {
	ID       int64
	Name     string
	Category string
	Price    string
	Rating   string
	ImageURL string
	ClickURL string
}

// Render writes one unit per item, in order, into a container with the given
// id. Nil or empty items render a single placeholder.
func (r *Renderer) Render(w io.Writer, containerID string, items []recsys.Item) error {
	view := widgetView{
		ContainerID: containerID,
		Units:       make([]unitView, 0, len(items)),
		Empty:       EmptyMessage,
	}

	for _, item := range items {
		view.Units = append(view.Units, r.unit(item))
	}

	if err := r.tmpl.Execute(w, view); err != nil {
		return fmt.Errorf("render widget: %w", err)
	}
	return nil
}

func (r *Renderer) unit(item recsys.Item) unitView {
	u := unitView{
		ID:       item.ItemID,
		Name:     item.Name,
		Category: item.Category,
		Price:    FormatPrice(item.Price),
		ImageURL: item.ImageURL,
		ClickURL: r.clickURL(item.ItemID),
	}
	if u.ImageURL == "" {
		u.ImageURL = PlaceholderImage
	}
	if item.HasRating() {
		u.Rating = FormatRating(*item.Rating)
	}
	return u
}

// FormatPrice formats a price with two decimals
func FormatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', 2, 64)
}

// FormatRating formats a rating with one decimal
func FormatRating(rating float64) string {
	return strconv.FormatFloat(rating, 'f', 1, 64)
}
