package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceClasses maps CDP resource types to the names used in config.
var resourceClasses = map[string]string{
	"image":      "images",
	"font":       "fonts",
	"media":      "media",
	"stylesheet": "stylesheets",
}

// blockResources fails requests whose resource class is listed in classes.
// Stripping only needs the DOM, so heavy assets are pure overhead.
func blockResources(page *rod.Page, classes []string) {
	blocked := blockSet(classes)

	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if blocked[classOf(string(h.Request.Type()))] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
}

func blockSet(classes []string) map[string]bool {
	set := make(map[string]bool, len(classes))
	for _, c := range classes {
		set[strings.ToLower(strings.TrimSpace(c))] = true
	}
	return set
}

// classOf returns the config name for a CDP resource type; unknown types
// map to their own lower-cased name.
func classOf(resType string) string {
	lower := strings.ToLower(resType)
	if c, ok := resourceClasses[lower]; ok {
		return c
	}
	return lower
}
