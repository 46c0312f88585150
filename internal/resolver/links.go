package resolver

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxLinkLength = 120

// ExtractProductLinks returns the unique product links of an HTML page in
// document order. Relative links are resolved against baseURL.
func ExtractProductLinks(r io.Reader, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}

	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").Each(func(i int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.Contains(href, "/p") && !strings.Contains(href, "produkt") {
			return
		}

		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		link := base.ResolveReference(ref).String()
		if _, ok := seen[link]; ok {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})

	return links, nil
}

// LinkList is the content of a link file split by kind.
type LinkList struct {
	ProductURLs   []string
	CategorySlugs []string
}

// ReadLinkFile reads one link per line. Lines starting with "#" and lines not
// starting with "https" are skipped; links are cut at 120 characters.
func ReadLinkFile(path string) (LinkList, error) {
	f, err := os.Open(path)
	if err != nil {
		return LinkList{}, fmt.Errorf("failed to open link file: %w", err)
	}
	defer f.Close()

	return ReadLinks(f)
}

func ReadLinks(r io.Reader) (LinkList, error) {
	var list LinkList
	products := make(map[string]struct{})
	categories := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") || !strings.HasPrefix(line, "https") {
			continue
		}
		if len(line) > maxLinkLength {
			line = line[:maxLinkLength]
		}

		switch {
		case IsCategoryURL(line):
			slug := IDFromURL(line)
			if _, ok := categories[slug]; !ok && slug != "" {
				categories[slug] = struct{}{}
				list.CategorySlugs = append(list.CategorySlugs, slug)
			}
		case IsProductURL(line):
			if _, ok := products[line]; !ok {
				products[line] = struct{}{}
				list.ProductURLs = append(list.ProductURLs, line)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return LinkList{}, fmt.Errorf("failed to read links: %w", err)
	}

	return list, nil
}
