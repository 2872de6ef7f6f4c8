package validation

import (
	"reflect"
	"testing"

	"media-resampler/resample"
)

func TestParsePathParams_WithLocation(t *testing.T) {
	// Test case: URL with location parameter (no encoded URL at the end)
	pathParams := "loc:dmlkZW9zLzEvMTA4MHAubXA0/q:75/webp/w:1920/i:cubic/sig:198acb42e0564c7f1023f903cd524c3355aceb2190036fad7d3e5eb70cf713a4"

	params, err := ParsePathParams(pathParams, resample.Bilinear)
	if err != nil {
		t.Fatalf("ParsePathParams failed: %v", err)
	}

	if params.Location != "dmlkZW9zLzEvMTA4MHAubXA0" {
		t.Errorf("Expected location 'dmlkZW9zLzEvMTA4MHAubXA0', got '%s'", params.Location)
	}
	if params.Quality != 75 {
		t.Errorf("Expected quality 75, got %d", params.Quality)
	}
	if params.Width != 1920 {
		t.Errorf("Expected width 1920, got %d", params.Width)
	}
	if params.Interpolation != resample.Cubic {
		t.Errorf("Expected cubic interpolation, got %s", params.Interpolation)
	}
	if !params.Webp {
		t.Error("Expected webp to be true")
	}
	if params.Signature != "198acb42e0564c7f1023f903cd524c3355aceb2190036fad7d3e5eb70cf713a4" {
		t.Errorf("Expected signature '198acb42e0564c7f1023f903cd524c3355aceb2190036fad7d3e5eb70cf713a4', got '%s'", params.Signature)
	}
	if params.EncodedURL != "" {
		t.Errorf("Expected no encoded URL, got '%s'", params.EncodedURL)
	}
}

func TestParsePathParams_WithEncodedURL(t *testing.T) {
	pathParams := "q:75/webp/w:640/h:480/aHR0cHM6Ly9leGFtcGxlLmNvbS9jYXQuanBn"

	params, err := ParsePathParams(pathParams, resample.Nearest)
	if err != nil {
		t.Fatalf("ParsePathParams failed: %v", err)
	}

	if params.Width != 640 || params.Height != 480 {
		t.Errorf("Expected 640x480, got %dx%d", params.Width, params.Height)
	}
	if params.Interpolation != resample.Nearest {
		t.Errorf("Expected default interpolation nearest, got %s", params.Interpolation)
	}
	if params.EncodedURL != "aHR0cHM6Ly9leGFtcGxlLmNvbS9jYXQuanBn" {
		t.Errorf("Expected encoded URL 'aHR0cHM6Ly9leGFtcGxlLmNvbS9jYXQuanBn', got '%s'", params.EncodedURL)
	}
	if params.Location != "" {
		t.Errorf("Expected no location, got '%s'", params.Location)
	}
}

func TestParsePathParams_IgnoresMalformedValues(t *testing.T) {
	pathParams := "q:0/w:-5/h:abc/s:9/i:lanczos/tol:x/garbage/aHR0cA"

	params, err := ParsePathParams(pathParams, resample.Bilinear)
	if err != nil {
		t.Fatalf("ParsePathParams failed: %v", err)
	}

	if params.Quality != 100 || params.Width != 0 || params.Height != 0 || params.Scale != 0 {
		t.Errorf("Expected defaults, got %+v", params)
	}
	if params.Interpolation != resample.Bilinear {
		t.Errorf("Expected bilinear, got %s", params.Interpolation)
	}
	if params.Tolerances != nil {
		t.Errorf("Expected no tolerances, got %v", params.Tolerances)
	}
}

func TestParsePathParams_ScaleAndTolerances(t *testing.T) {
	params, err := ParsePathParams("s:2.5/i:1/tol:0,5,10/aHR0cA", resample.Nearest)
	if err != nil {
		t.Fatalf("ParsePathParams failed: %v", err)
	}

	if params.Scale != 2.5 {
		t.Errorf("Expected scale 2.5, got %f", params.Scale)
	}
	if params.Interpolation != resample.Bilinear {
		t.Errorf("Expected bilinear, got %s", params.Interpolation)
	}
	if !reflect.DeepEqual(params.Tolerances, []uint16{0, 5, 10}) {
		t.Errorf("Expected tolerances [0 5 10], got %v", params.Tolerances)
	}
}

func TestParsePathParams_Empty(t *testing.T) {
	if _, err := ParsePathParams("/", resample.Nearest); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestParseTolerances(t *testing.T) {
	tols, err := ParseTolerances(" 1, 2 ,255")
	if err != nil {
		t.Fatalf("ParseTolerances failed: %v", err)
	}
	if !reflect.DeepEqual(tols, []uint16{1, 2, 255}) {
		t.Errorf("unexpected tolerances %v", tols)
	}

	for _, bad := range []string{"", "256", "-1", "a,1"} {
		if _, err := ParseTolerances(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
