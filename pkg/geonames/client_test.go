package geonames

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crisisgraph/fieldgeo/internal/resilience"
)

func TestSearchReturnsBestMatch(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/searchJSON", r.URL.Path)
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Write([]byte(`{"totalResultsCount": 5, "geonames": [{
			"geonameId": 3899539,
			"name": "Antofagasta",
			"countryCode": "CL",
			"fcode": "PPLA",
			"population": 309832,
			"lat": "-23.65236",
			"lng": "-70.3954"
		}]}`))
	}))
	defer srv.Close()

	c := NewClient("demo", WithBaseURL(srv.URL))
	place, err := c.Search(context.Background(), Query{
		Name:         "Antofagasta",
		CountryCode:  "CL",
		FeatureClass: "P",
	})
	require.NoError(t, err)
	require.NotNil(t, place)

	assert.Equal(t, int64(3899539), place.GeoNameID)
	assert.Equal(t, "Antofagasta", place.Name)
	assert.Equal(t, int64(309832), place.Population)
	lat, lng := place.Coordinates()
	assert.InDelta(t, -23.65236, lat, 1e-9)
	assert.InDelta(t, -70.3954, lng, 1e-9)

	assert.Equal(t, "Antofagasta", gotQuery["q"])
	assert.Equal(t, "CL", gotQuery["country"])
	assert.Equal(t, "P", gotQuery["featureClass"])
	assert.Equal(t, "1", gotQuery["maxRows"])
	assert.Equal(t, "demo", gotQuery["username"])
	assert.Empty(t, gotQuery["featureCode"])
}

func TestSearchSendsFeatureCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ADM1", r.URL.Query().Get("featureCode"))
		assert.Equal(t, "A", r.URL.Query().Get("featureClass"))
		w.Write([]byte(`{"geonames": []}`))
	}))
	defer srv.Close()

	c := NewClient("demo", WithBaseURL(srv.URL))
	place, err := c.Search(context.Background(), Query{
		Name:         "Los Lagos",
		CountryCode:  "CL",
		FeatureClass: "A",
		FeatureCode:  "ADM1",
	})
	require.NoError(t, err)
	assert.Nil(t, place, "no rows means no match, not an error")
}

func TestSearchAPIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": {"message": "the hourly limit of 1000 credits has been exceeded", "value": 19}}`))
	}))
	defer srv.Close()

	c := NewClient("demo", WithBaseURL(srv.URL))
	_, err := c.Search(context.Background(), Query{Name: "Santiago"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hourly limit")
}

func TestSearchServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient("demo", WithBaseURL(srv.URL))
	_, err := c.Search(context.Background(), Query{Name: "Santiago"})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestCountryCode(t *testing.T) {
	cases := []struct {
		name string
		code string
	}{
		{"Chile", "CL"},
		{"chile", "CL"},
		{"United Kingdom", "GB"},
		{"UK", "GB"},
		{"United States", "US"},
		{"Russian Federation", "RU"},
		{"South Korea", "KR"},
		{"Costa Rica", "CR"},
		{"Türkiye", "TR"},
	}
	for _, tc := range cases {
		code, ok := CountryCode(tc.name)
		require.True(t, ok, "country %q", tc.name)
		assert.Equal(t, tc.code, code, "country %q", tc.name)
	}

	_, ok := CountryCode("Atlantis")
	assert.False(t, ok)
}
