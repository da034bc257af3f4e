package main

import (
	"strings"

	"github.com/Ehtisham33/portfolio/internal/persona"
)

// pageContent is the copy rendered on the home page.
type pageContent struct {
	Name      string
	FirstName string
	Role      string
	Tagline   string
	AboutMe   string
	Location  string
	Email     string
	Skills    []persona.SkillGroup
	Projects  []projectCard
	Links     []persona.Link
}

type projectCard struct {
	Name    string
	Summary string
	Tech    string
	URL     string
}

func newPageContent(p *persona.Persona) pageContent {
	cards := make([]projectCard, 0, len(p.Projects))
	for _, pr := range p.Projects {
		cards = append(cards, projectCard{
			Name:    pr.Name,
			Summary: pr.Summary,
			Tech:    strings.Join(pr.Tech, " · "),
			URL:     pr.URL,
		})
	}

	return pageContent{
		Name:      p.Name,
		FirstName: p.FirstName(),
		Role:      p.Role,
		Tagline:   p.Tagline,
		AboutMe:   p.Summary,
		Location:  p.Location,
		Email:     p.Email,
		Skills:    p.Expertise,
		Projects:  cards,
		Links:     p.Links,
	}
}
