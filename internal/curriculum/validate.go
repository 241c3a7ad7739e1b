package curriculum

import (
	"fmt"
	"strings"
)

// validateModules performs all structural checks on the given modules.
// Returns a combined error describing all problems found, or nil if valid.
func validateModules(modules []Module) error {
	var errs []string

	moduleIDs := make(map[string]bool, len(modules))
	subtopicIDs := make(map[string]string)

	for i, m := range modules {
		if m.ID == "" {
			errs = append(errs, fmt.Sprintf("module #%d has an empty ID", i))
		} else if moduleIDs[m.ID] {
			errs = append(errs, fmt.Sprintf("duplicate module ID: %q", m.ID))
		}
		moduleIDs[m.ID] = true

		if m.Name == "" {
			errs = append(errs, fmt.Sprintf("module %q has an empty name", m.ID))
		}

		for j, st := range m.Subtopics {
			if st.ID == "" {
				errs = append(errs, fmt.Sprintf("module %q subtopic #%d has an empty ID", m.ID, j))
				continue
			}
			if owner, dup := subtopicIDs[st.ID]; dup {
				errs = append(errs, fmt.Sprintf("duplicate subtopic ID %q (modules %q and %q)", st.ID, owner, m.ID))
			}
			subtopicIDs[st.ID] = m.ID

			if st.Name == "" {
				errs = append(errs, fmt.Sprintf("subtopic %q has an empty name", st.ID))
			}

			seen := make(map[string]bool, len(st.Archetypes))
			for _, a := range st.Archetypes {
				if a == "" {
					errs = append(errs, fmt.Sprintf("subtopic %q has an empty archetype ID", st.ID))
					continue
				}
				if seen[a] {
					errs = append(errs, fmt.Sprintf("subtopic %q lists archetype %q twice", st.ID, a))
				}
				seen[a] = true
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("catalog validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
