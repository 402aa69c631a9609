package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/hirehub/portal/internal/wizard"
)

var sectionPaths = map[wizard.SectionKey]string{
	wizard.SectionPersonal:      "/profile/wizard/personal",
	wizard.SectionAddress:       "/profile/wizard/address",
	wizard.SectionFamily:        "/profile/wizard/family",
	wizard.SectionSocioEconomic: "/profile/wizard/socio-economic",
	wizard.SectionCommunity:     "/profile/wizard/community",
}

var listPaths = map[wizard.SectionKey]string{
	wizard.SectionEducation:  "/profile/education",
	wizard.SectionExperience: "/profile/experience",
	wizard.SectionSkills:     "/profile/skills",
	wizard.SectionInterests:  "/profile/interests",
}

// WizardStatus is the get-status payload. Sections and Summary are the
// backend's own view; the portal recomputes both from Profiles and the lists.
type WizardStatus struct {
	Sections map[wizard.SectionKey]json.RawMessage `json:"sections"`
	Summary  json.RawMessage                       `json:"summary"`
	Profiles wizard.RawProfile                     `json:"profiles"`
}

// WizardProfile fetches the profile documents of the wizard status.
func (c *Client) WizardProfile(ctx context.Context) (wizard.RawProfile, error) {
	var status WizardStatus
	if err := c.call(ctx, request{method: http.MethodGet, path: "/profile/wizard/status", protected: true}, &status); err != nil {
		return wizard.RawProfile{}, err
	}
	return status.Profiles, nil
}

// WizardLists fetches the four list-backed sub-resources.
func (c *Client) WizardLists(ctx context.Context) (wizard.Lists, error) {
	var lists wizard.Lists
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.list(ctx, wizard.SectionEducation, &lists.Education) })
	g.Go(func() error { return c.list(ctx, wizard.SectionExperience, &lists.Experience) })
	g.Go(func() error { return c.list(ctx, wizard.SectionSkills, &lists.Skills) })
	g.Go(func() error { return c.list(ctx, wizard.SectionInterests, &lists.Interests) })
	if err := g.Wait(); err != nil {
		return wizard.Lists{}, err
	}
	return lists, nil
}

func (c *Client) list(ctx context.Context, key wizard.SectionKey, out any) error {
	return c.call(ctx, request{method: http.MethodGet, path: listPaths[key], protected: true}, out)
}

// SaveSection updates one profile document section.
func (c *Client) SaveSection(ctx context.Context, key wizard.SectionKey, payload json.RawMessage) error {
	path, ok := sectionPaths[key]
	if !ok {
		return fmt.Errorf("%w: %s", wizard.ErrUnknownSection, key)
	}
	return c.call(ctx, request{method: http.MethodPut, path: path, body: payload, protected: true}, nil)
}

func recordPath(key wizard.SectionKey, id string) (string, error) {
	path, ok := listPaths[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", wizard.ErrUnknownSection, key)
	}
	if id != "" {
		path += "/" + url.PathEscape(id)
	}
	return path, nil
}

// CreateRecord adds a record to a list-backed section.
func (c *Client) CreateRecord(ctx context.Context, key wizard.SectionKey, payload json.RawMessage) error {
	path, err := recordPath(key, "")
	if err != nil {
		return err
	}
	return c.call(ctx, request{method: http.MethodPost, path: path, body: payload, protected: true}, nil)
}

// UpdateRecord updates a record of a list-backed section.
func (c *Client) UpdateRecord(ctx context.Context, key wizard.SectionKey, id string, payload json.RawMessage) error {
	path, err := recordPath(key, id)
	if err != nil {
		return err
	}
	return c.call(ctx, request{method: http.MethodPut, path: path, body: payload, protected: true}, nil)
}

// DeleteRecord removes a record from a list-backed section.
func (c *Client) DeleteRecord(ctx context.Context, key wizard.SectionKey, id string) error {
	path, err := recordPath(key, id)
	if err != nil {
		return err
	}
	return c.call(ctx, request{method: http.MethodDelete, path: path, protected: true}, nil)
}

// MarkNoFormalEducation sets the explicit "no formal education" state.
func (c *Client) MarkNoFormalEducation(ctx context.Context) error {
	return c.call(ctx, request{method: http.MethodPost, path: "/profile/education/none", protected: true}, nil)
}

// MarkFresher sets the explicit "fresher" state.
func (c *Client) MarkFresher(ctx context.Context) error {
	return c.call(ctx, request{method: http.MethodPost, path: "/profile/experience/fresher", protected: true}, nil)
}

var _ wizard.Backend = (*Client)(nil)
