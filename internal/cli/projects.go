package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/gert/internal/gerrit"
	"github.com/sprite-ai/gert/internal/output"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects on the server",
	Args:  cobra.NoArgs,
	RunE:  runProjects,
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List groups on the server",
	Args:  cobra.NoArgs,
	RunE:  runGroups,
}

var groupsShowCmd = &cobra.Command{
	Use:   "groups-show <group>",
	Short: "Show one group in detail",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupsShow,
}

var groupsMembersCmd = &cobra.Command{
	Use:   "groups-members <group>",
	Short: "List the members of a group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupsMembers,
}

func init() {
	projectsCmd.Flags().String("pattern", "", "substring match on project names")
	groupsCmd.Flags().String("pattern", "", "substring match on group names")
	groupsCmd.Flags().Bool("owned", false, "only groups you own")
	groupsCmd.Flags().String("project", "", "only groups visible to this project")
	groupsCmd.Flags().String("user", "", "only groups containing this user")
	groupsCmd.Flags().IntP("limit", "n", 0, "maximum number of groups")
}

func runProjects(cmd *cobra.Command, args []string) error {
	format := outFormat(cmd)
	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	pattern, _ := cmd.Flags().GetString("pattern")
	projects, err := client.ListProjects(cmd.Context(), pattern)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(projects))
	for name := range projects {
		names = append(names, name)
	}
	sort.Strings(names)

	switch format {
	case output.FormatXML:
		root := output.NewElem("projects").Attr("count", itoa(len(names)))
		for _, name := range names {
			p := projects[name]
			e := root.Child("project")
			e.ChildText("name", name)
			if p.State != "" {
				e.Attr("state", p.State)
			}
			if p.Description != "" {
				e.ChildCDATA("description", p.Description)
			}
		}
		fmt.Fprintln(stdout(), root.Render())
	case output.FormatJSON:
		list := make([]output.Envelope, 0, len(names))
		for _, name := range names {
			p := projects[name]
			entry := output.Envelope{"name": name}
			if p.State != "" {
				entry["state"] = p.State
			}
			if p.Description != "" {
				entry["description"] = p.Description
			}
			list = append(list, entry)
		}
		return output.JSON(stdout(), output.SuccessEnvelope(output.Envelope{"projects": list}))
	default:
		if len(names) == 0 {
			fmt.Fprintln(stdout(), "No projects.")
			return nil
		}
		for _, name := range names {
			line := name
			if desc := projects[name].Description; desc != "" {
				line += " — " + firstLine(desc)
			}
			fmt.Fprintln(stdout(), line)
		}
	}
	return nil
}

func runGroups(cmd *cobra.Command, args []string) error {
	format := outFormat(cmd)
	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}

	var q gerrit.GroupQuery
	q.Pattern, _ = cmd.Flags().GetString("pattern")
	q.Owned, _ = cmd.Flags().GetBool("owned")
	q.Project, _ = cmd.Flags().GetString("project")
	q.User, _ = cmd.Flags().GetString("user")
	q.Limit, _ = cmd.Flags().GetInt("limit")

	groups, err := client.ListGroups(cmd.Context(), q)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	switch format {
	case output.FormatXML:
		root := output.NewElem("groups").Attr("count", itoa(len(names)))
		for _, name := range names {
			root.Append(groupElem("group", groups[name], name))
		}
		fmt.Fprintln(stdout(), root.Render())
	case output.FormatJSON:
		list := make([]output.Envelope, 0, len(names))
		for _, name := range names {
			list = append(list, groupFields(groups[name], name))
		}
		return output.JSON(stdout(), output.SuccessEnvelope(output.Envelope{"groups": list}))
	default:
		if len(names) == 0 {
			fmt.Fprintln(stdout(), "No groups.")
			return nil
		}
		for _, name := range names {
			line := name
			if desc := groups[name].Description; desc != "" {
				line += " — " + firstLine(desc)
			}
			fmt.Fprintln(stdout(), line)
		}
	}
	return nil
}

func groupElem(tag string, g gerrit.Group, name string) *output.Elem {
	if name == "" {
		name = g.Name
	}
	e := output.NewElem(tag).Attr("id", g.ID)
	e.ChildText("name", name)
	if g.Owner != "" {
		e.ChildText("owner", g.Owner)
	}
	if g.Description != "" {
		e.ChildCDATA("description", g.Description)
	}
	if g.CreatedOn != "" {
		e.ChildText("created_on", g.CreatedOn)
	}
	return e
}

func groupFields(g gerrit.Group, name string) output.Envelope {
	if name == "" {
		name = g.Name
	}
	env := output.Envelope{"id": g.ID, "name": name}
	if g.Owner != "" {
		env["owner"] = g.Owner
	}
	if g.Description != "" {
		env["description"] = g.Description
	}
	if g.CreatedOn != "" {
		env["created_on"] = g.CreatedOn
	}
	return env
}

func runGroupsShow(cmd *cobra.Command, args []string) error {
	format := outFormat(cmd)
	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	g, err := client.GetGroupDetail(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	switch format {
	case output.FormatXML:
		e := groupElem("group", *g, "")
		if len(g.Members) > 0 {
			members := e.Child("members")
			for i := range g.Members {
				members.Append(accountElem("member", &g.Members[i]))
			}
		}
		for _, inc := range g.Includes {
			e.Child("includes").Attr("id", inc.ID).Text(inc.Name)
		}
		fmt.Fprintln(stdout(), e.Render())
	case output.FormatJSON:
		fields := groupFields(*g, "")
		if len(g.Members) > 0 {
			list := make([]output.Envelope, 0, len(g.Members))
			for i := range g.Members {
				list = append(list, accountFields(&g.Members[i]))
			}
			fields["members"] = list
		}
		return output.JSON(stdout(), output.SuccessEnvelope(output.Envelope{"group": fields}))
	default:
		fmt.Fprintf(stdout(), "Group: %s\n", g.Name)
		if g.Owner != "" {
			fmt.Fprintf(stdout(), "  Owner: %s\n", g.Owner)
		}
		if g.Description != "" {
			fmt.Fprintf(stdout(), "  Description: %s\n", firstLine(g.Description))
		}
		if len(g.Members) > 0 {
			fmt.Fprintf(stdout(), "  Members (%d):\n", len(g.Members))
			for i := range g.Members {
				fmt.Fprintf(stdout(), "    %s\n", g.Members[i].Display())
			}
		}
	}
	return nil
}

func runGroupsMembers(cmd *cobra.Command, args []string) error {
	format := outFormat(cmd)
	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	members, err := client.GetGroupMembers(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	switch format {
	case output.FormatXML:
		root := output.NewElem("members").Attr("count", itoa(len(members)))
		for i := range members {
			root.Append(accountElem("member", &members[i]))
		}
		fmt.Fprintln(stdout(), root.Render())
	case output.FormatJSON:
		list := make([]output.Envelope, 0, len(members))
		for i := range members {
			list = append(list, accountFields(&members[i]))
		}
		return output.JSON(stdout(), output.SuccessEnvelope(output.Envelope{"members": list}))
	default:
		if len(members) == 0 {
			fmt.Fprintln(stdout(), "No members.")
			return nil
		}
		for i := range members {
			m := &members[i]
			line := m.Display()
			if m.Email != "" && m.Email != line {
				line += " <" + m.Email + ">"
			}
			fmt.Fprintln(stdout(), line)
		}
	}
	return nil
}
