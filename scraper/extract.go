package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/freee-sys/parsing/models"
	"github.com/freee-sys/parsing/parser"
)

const (
	selProductInfo  = "div#product-info"
	selProductTitle = "div#product-title"
	selRating       = "div#rate"
	selAnnotation   = "div#fullannotation"
	selAbout        = "div#product-about"
	selRatingsCount = "div#product-rating-marks-label"
	selImages       = `link[itemprop="image"]`
)

// ExtractBook reads a product page. It returns nil without an error when the
// title or product-info section is missing; the only error is a ratings
// label that does not hold a number.
func ExtractBook(doc *goquery.Selection, bookID int) (*models.Book, error) {
	info := doc.Find(selProductInfo).First()
	title := doc.Find(selProductTitle).First()
	if info.Length() == 0 || title.Length() == 0 {
		return nil, nil
	}

	rating := doc.Find(selRating).First()
	ratingsCount := doc.Find(selRatingsCount).First()

	book := &models.Book{
		BookID:        bookID,
		Name:          attr(info, "data-name"),
		Author:        parser.AuthorFromTitle(joinedText(title.Find("h1").First(), "")),
		Genre:         attr(info, "data-maingenere-name"),
		FirstGenre:    attr(info, "data-first-genre-name"),
		Price:         attr(info, "data-price"),
		DiscountPrice: attr(info, "data-discount-price"),
		Pubhouse:      attr(info, "data-pubhouse"),
		Images:        imageLinks(info),
		Rating:        parser.NormalizeRating(joinedText(rating, ""), rating.Length() > 0),
		Description:   description(doc),
	}

	if ratingsCount.Length() > 0 {
		count, err := parser.ParseRatingsCount(joinedText(ratingsCount, ""))
		if err != nil {
			return nil, ErrParse{BookID: bookID, Field: "ratings_count", Err: err}
		}
		book.RatingsCount = count
	}

	return book, nil
}

func attr(sel *goquery.Selection, name string) *string {
	value, ok := sel.Attr(name)
	if !ok {
		return nil
	}
	return &value
}

func imageLinks(info *goquery.Selection) []string {
	links := make([]string, 0, parser.MaxImages)
	info.Find(selImages).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= parser.MaxImages {
			return false
		}
		if href, ok := s.Attr("href"); ok {
			links = append(links, href)
		}
		return true
	})
	return links
}

func description(doc *goquery.Selection) string {
	if annotation := doc.Find(selAnnotation).First(); annotation.Length() > 0 {
		return strings.TrimSpace(joinedText(annotation, " "))
	}
	if about := doc.Find(selAbout).First(); about.Length() > 0 {
		return strings.TrimSpace(joinedText(about, " "))
	}
	return parser.NoDescription
}

// joinedText concatenates every text node under sel with sep between them.
// Script and style bodies are not text; comments are skipped by node type.
func joinedText(sel *goquery.Selection, sep string) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			parts = append(parts, n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "template":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, sep)
}
