package worker

import (
	"context"
	"errors"
	"testing"
)

func validProject(title string) ProjectInput {
	return ProjectInput{
		Title:        title,
		Description:  "Replaced the ceiling boards and fitted LED downlights",
		Location:     "Johannesburg",
		Skills:       []string{"Ceiling Installation", " "},
		BeforeImages: []string{"https://f.example/before.jpg"},
		AfterImages:  []string{"https://f.example/after.jpg"},
	}
}

func TestAddProjectValidation(t *testing.T) {
	s, _, _ := newTestService()
	ctx := context.Background()

	if _, err := s.AddProject(ctx, "nobody", validProject("Kitchen")); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("no profile err = %v", err)
	}
	mustProfile(t, s, "w-1")

	in := validProject("Kitchen")
	in.AfterImages = nil
	if _, err := s.AddProject(ctx, "w-1", in); !errors.Is(err, ErrProjectImages) {
		t.Fatalf("no after image err = %v", err)
	}
	in = validProject("  ")
	if _, err := s.AddProject(ctx, "w-1", in); !errors.Is(err, ErrIncompleteProject) {
		t.Fatalf("blank title err = %v", err)
	}

	p, err := s.AddProject(ctx, "w-1", validProject(" Kitchen ceiling "))
	if err != nil {
		t.Fatal(err)
	}
	if p.Title != "Kitchen ceiling" || len(p.Skills) != 1 || p.Trade != "plumbing" {
		t.Fatalf("project = %+v", p)
	}
}

func TestPortfolioAndFeed(t *testing.T) {
	s, store, _ := newTestService()
	ctx := context.Background()
	mustProfile(t, s, "w-1")
	mustProfile(t, s, "w-2")

	first, _ := s.AddProject(ctx, "w-1", validProject("Fence"))
	_, _ = s.AddProject(ctx, "w-2", validProject("Tiling"))
	_, _ = s.AddProject(ctx, "w-1", validProject("Ceiling"))

	mine, err := s.ListProjects(ctx, "w-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 || mine[0].Title != "Ceiling" {
		t.Fatalf("portfolio = %+v", mine)
	}

	feed, _ := s.Feed(ctx, 0)
	if len(feed) != 3 || feed[0].Title != "Ceiling" {
		t.Fatalf("feed = %+v", feed)
	}
	if feed, _ := s.Feed(ctx, 1); len(feed) != 1 {
		t.Fatalf("limited feed = %+v", feed)
	}

	if err := s.DeleteProject(ctx, "w-2", first.ID); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("foreign delete err = %v", err)
	}
	if err := s.DeleteProject(ctx, "w-1", first.ID); err != nil {
		t.Fatal(err)
	}
	if mine, _ := s.PublicProjects(ctx, "w-1"); len(mine) != 1 {
		t.Fatalf("after delete = %+v", mine)
	}

	store.suspend("w-2")
	feed, _ = s.Feed(ctx, 0)
	for _, p := range feed {
		if p.UserID == "w-2" {
			t.Fatalf("suspended worker in feed: %+v", feed)
		}
	}
}
