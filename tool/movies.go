package tool

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/cinegraph/retrieve"
)

// Movie is one catalog entry.
type Movie struct {
	Title    string  `json:"title"`
	Year     int     `json:"year"`
	Genre    string  `json:"genre"`
	Director string  `json:"director"`
	Rating   float64 `json:"rating"`
	Plot     string  `json:"plot"`
}

// Catalog is a static movie lookup table backing the movie tools.
type Catalog struct {
	movies []Movie
}

// NewCatalog creates a catalog over the given movies.
func NewCatalog(movies []Movie) *Catalog {
	return &Catalog{movies: movies}
}

// DefaultCatalog returns the built-in demo catalog.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Movie{
		{Title: "Interstellar", Year: 2014, Genre: "Sci-Fi", Director: "Christopher Nolan", Rating: 8.7, Plot: "Explorers travel through a wormhole in space to find humanity a new home."},
		{Title: "Inception", Year: 2010, Genre: "Sci-Fi", Director: "Christopher Nolan", Rating: 8.8, Plot: "A thief who steals secrets through dream-sharing is given an inverse task: plant an idea."},
		{Title: "The Matrix", Year: 1999, Genre: "Sci-Fi", Director: "Lana Wachowski, Lilly Wachowski", Rating: 8.7, Plot: "A hacker learns reality is a simulation and joins a rebellion against its machine overseers."},
		{Title: "The Dark Knight", Year: 2008, Genre: "Action", Director: "Christopher Nolan", Rating: 9.0, Plot: "Batman faces the Joker, a criminal mastermind bent on plunging Gotham into anarchy."},
	})
}

// Find returns the movie with the given title, case-insensitively.
func (c *Catalog) Find(title string) (Movie, bool) {
	for _, m := range c.movies {
		if strings.EqualFold(m.Title, title) {
			return m, true
		}
	}
	return Movie{}, false
}

// Filter returns every movie matching the given genre and year; zero
// values match anything.
func (c *Catalog) Filter(genre string, year int) []Movie {
	var out []Movie
	for _, m := range c.movies {
		if genre != "" && !strings.EqualFold(m.Genre, genre) {
			continue
		}
		if year != 0 && m.Year != year {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Movies returns a copy of the catalog contents.
func (c *Catalog) Movies() []Movie {
	out := make([]Movie, len(c.movies))
	copy(out, c.movies)
	return out
}

type movieLookupInput struct {
	Title string `json:"title" description:"Exact movie title to look up"`
	Year  int    `json:"year,omitempty" description:"Optional release year filter"`
	Genre string `json:"genre,omitempty" description:"Fallback: list movies in this genre when the title is unknown"`
}

// NewMovieLookupTool returns the movie_lookup tool: exact title lookup with
// optional year and genre filters falling back to a filtered listing when
// the title misses.
func NewMovieLookupTool(catalog *Catalog) Tool {
	return NewFunctionTool("movie_lookup", "Look up a movie by title and return its year, genre, director, rating and plot.", func(_ context.Context, input movieLookupInput) (any, error) {
		if m, ok := catalog.Find(input.Title); ok {
			if input.Year == 0 || m.Year == input.Year {
				return m, nil
			}
		}
		if input.Genre != "" || input.Year != 0 {
			if movies := catalog.Filter(input.Genre, input.Year); len(movies) > 0 {
				return movies, nil
			}
		}
		return nil, fmt.Errorf("no movie titled %q in catalog", input.Title)
	})
}

// EvidenceRetriever is the retrieval surface the recommendation tool
// consults for plot evidence.
type EvidenceRetriever interface {
	Retrieve(ctx context.Context, query string, k int, minScore float64) (retrieve.Result, error)
}

// Recommendation is one entry in a recommend_movies result.
type Recommendation struct {
	Title  string  `json:"title"`
	Year   int     `json:"year"`
	Genre  string  `json:"genre"`
	Rating float64 `json:"rating"`
	Reason string  `json:"reason"`
}

type recommendInput struct {
	Preferences string `json:"preferences" description:"Free-text description of what the user enjoys"`
	Count       int    `json:"count,omitempty" description:"Maximum number of recommendations, default 3"`
}

// NewRecommendMoviesTool returns the recommend_movies tool. Catalog movies
// are scored by how well their plot evidence and genre match the stated
// preferences; a missing or failing retriever degrades to genre and keyword
// matching instead of failing the call.
func NewRecommendMoviesTool(catalog *Catalog, retriever EvidenceRetriever) Tool {
	return NewFunctionTool("recommend_movies", "Recommend movies from the catalog matching the user's stated preferences.", func(ctx context.Context, input recommendInput) (any, error) {
		count := input.Count
		if count <= 0 {
			count = 3
		}

		var evidence retrieve.Result
		if retriever != nil {
			res, err := retriever.Retrieve(ctx, input.Preferences, count*2, 0.1)
			if err == nil {
				evidence = res
			}
		}

		prefs := strings.ToLower(input.Preferences)
		type scored struct {
			movie  Movie
			score  float64
			reason string
		}
		var candidates []scored
		for _, m := range catalog.movies {
			var score float64
			reason := "matches your stated preferences"
			if strings.Contains(prefs, strings.ToLower(m.Genre)) {
				score += 0.5
				reason = fmt.Sprintf("a %s film", m.Genre)
			}
			for _, word := range strings.Fields(strings.ToLower(m.Plot)) {
				word = strings.Trim(word, ".,!?\"'()")
				if len(word) > 3 && strings.Contains(prefs, word) {
					score += 0.1
				}
			}
			for _, ev := range evidence {
				if strings.EqualFold(ev.Chunk.Source.Title, m.Title) || strings.Contains(strings.ToLower(ev.Chunk.Text), strings.ToLower(m.Title)) {
					score += ev.Score
					reason = fmt.Sprintf("its plot closely matches what you enjoy (%s)", m.Genre)
				}
			}
			if score > 0 {
				candidates = append(candidates, scored{movie: m, score: score, reason: reason})
			}
		}

		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].score != candidates[j].score {
				return candidates[i].score > candidates[j].score
			}
			return candidates[i].movie.Title < candidates[j].movie.Title
		})
		if len(candidates) > count {
			candidates = candidates[:count]
		}

		recs := make([]Recommendation, 0, len(candidates))
		for _, c := range candidates {
			recs = append(recs, Recommendation{
				Title:  c.movie.Title,
				Year:   c.movie.Year,
				Genre:  c.movie.Genre,
				Rating: c.movie.Rating,
				Reason: c.reason,
			})
		}
		return recs, nil
	})
}
