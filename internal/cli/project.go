package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewProjectCmd создаёт группу команд для управления проектами.
func NewProjectCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	cmd.AddCommand(
		newProjectListCmd(clientFn, outputFn),
		newProjectCreateCmd(clientFn, outputFn),
		newProjectShowCmd(clientFn, outputFn),
		newProjectUpdateCmd(clientFn, outputFn),
		newProjectDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func newProjectListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			projects, err := client.ListProjects()
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "BRANCH", "PACKAGE", "ACTIVE", "CREATED"}
			rows := make([][]string, len(projects))
			for i, p := range projects {
				rows[i] = []string{p.ID, p.Name, p.Branch, p.Package, strconv.FormatBool(p.IsActive), p.CreatedAt}
			}

			out.Print(headers, rows, projects)
			return nil
		},
	}
}

func newProjectCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var req CreateProjectRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			project, err := client.CreateProject(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Project created: %s", project.ID))
			out.Print(
				[]string{"ID", "NAME", "BRANCH", "PACKAGE", "ACTIVE"},
				[][]string{{project.ID, project.Name, project.Branch, project.Package, strconv.FormatBool(project.IsActive)}},
				project,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Project name (required)")
	cmd.Flags().StringVar(&req.RepoURL, "repo-url", "", "Git repository URL (required)")
	cmd.Flags().StringVar(&req.Branch, "branch", "", "Release branch (required)")
	cmd.Flags().StringVar(&req.Remote, "remote", "", "Git remote name (default origin)")
	cmd.Flags().StringVar(&req.RegistryURL, "registry-url", "", "Package registry base URL (required)")
	cmd.Flags().StringVar(&req.Package, "package", "", "Package name in registry (required)")
	cmd.Flags().StringVar(&req.InstallCmd, "install-cmd", "", "Release tool install command (required)")
	cmd.Flags().StringVar(&req.BuildCmd, "build-cmd", "", "Build command (required)")
	cmd.Flags().StringVar(&req.TestCmd, "test-cmd", "", "Test command (required)")
	cmd.Flags().StringVar(&req.GitName, "git-name", "", "Git committer name (required)")
	cmd.Flags().StringVar(&req.GitEmail, "git-email", "", "Git committer email (required)")
	cmd.Flags().StringVar(&req.CredentialRef, "credential-ref", "", "Registry credential reference")
	cmd.Flags().IntVar(&req.RetentionDays, "retention-days", 0, "Terminal run retention in days (default 90)")

	return cmd
}

func newProjectShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show project details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			project, err := client.GetProject(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "NAME", "REPO_URL", "BRANCH", "REGISTRY", "PACKAGE", "ACTIVE"},
				[][]string{{project.ID, project.Name, project.RepoURL, project.Branch, project.RegistryURL, project.Package, strconv.FormatBool(project.IsActive)}},
				project,
			)
			return nil
		},
	}
}

func newProjectUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var (
		name          string
		repoURL       string
		branch        string
		remote        string
		registryURL   string
		pkg           string
		installCmd    string
		buildCmd      string
		testCmd       string
		gitName       string
		gitEmail      string
		credentialRef string
		retentionDays int
		active        bool
	)

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a project (only changed flags are applied)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var req UpdateProjectRequest
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("repo-url") {
				req.RepoURL = &repoURL
			}
			if cmd.Flags().Changed("branch") {
				req.Branch = &branch
			}
			if cmd.Flags().Changed("remote") {
				req.Remote = &remote
			}
			if cmd.Flags().Changed("registry-url") {
				req.RegistryURL = &registryURL
			}
			if cmd.Flags().Changed("package") {
				req.Package = &pkg
			}
			if cmd.Flags().Changed("install-cmd") {
				req.InstallCmd = &installCmd
			}
			if cmd.Flags().Changed("build-cmd") {
				req.BuildCmd = &buildCmd
			}
			if cmd.Flags().Changed("test-cmd") {
				req.TestCmd = &testCmd
			}
			if cmd.Flags().Changed("git-name") {
				req.GitName = &gitName
			}
			if cmd.Flags().Changed("git-email") {
				req.GitEmail = &gitEmail
			}
			if cmd.Flags().Changed("credential-ref") {
				req.CredentialRef = &credentialRef
			}
			if cmd.Flags().Changed("retention-days") {
				req.RetentionDays = &retentionDays
			}
			if cmd.Flags().Changed("active") {
				req.IsActive = &active
			}

			project, err := client.UpdateProject(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Project updated: %s", project.ID))
			out.Print(
				[]string{"ID", "NAME", "BRANCH", "PACKAGE", "ACTIVE"},
				[][]string{{project.ID, project.Name, project.Branch, project.Package, strconv.FormatBool(project.IsActive)}},
				project,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Project name")
	cmd.Flags().StringVar(&repoURL, "repo-url", "", "Git repository URL")
	cmd.Flags().StringVar(&branch, "branch", "", "Release branch")
	cmd.Flags().StringVar(&remote, "remote", "", "Git remote name")
	cmd.Flags().StringVar(&registryURL, "registry-url", "", "Package registry base URL")
	cmd.Flags().StringVar(&pkg, "package", "", "Package name in registry")
	cmd.Flags().StringVar(&installCmd, "install-cmd", "", "Release tool install command")
	cmd.Flags().StringVar(&buildCmd, "build-cmd", "", "Build command")
	cmd.Flags().StringVar(&testCmd, "test-cmd", "", "Test command")
	cmd.Flags().StringVar(&gitName, "git-name", "", "Git committer name")
	cmd.Flags().StringVar(&gitEmail, "git-email", "", "Git committer email")
	cmd.Flags().StringVar(&credentialRef, "credential-ref", "", "Registry credential reference")
	cmd.Flags().IntVar(&retentionDays, "retention-days", 0, "Terminal run retention in days")
	cmd.Flags().BoolVar(&active, "active", true, "Whether the project accepts triggers")

	return cmd
}

func newProjectDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteProject(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Project deleted: %s", args[0]))
			return nil
		},
	}
}
