package cmd

import (
	"context"
	"fmt"

	ishell "github.com/abiosoft/ishell"
	"github.com/common-nighthawk/go-figure"

	"github.com/jghoshh/trailhead/frontend/client"
	"github.com/jghoshh/trailhead/lib/utils"
	"github.com/jghoshh/trailhead/models"
	"github.com/jghoshh/trailhead/progress"
)

// guestCommands contains commands that are available to users who have not logged in.
var guestCommands []Command

// userCommands contains commands that are available only to logged in users.
var userCommands []Command

// loggedIn indicates whether a user is currently logged in.
var loggedIn bool

// shell is the interactive shell instance for this application.
var shell *ishell.Shell

// ctrl is the sync controller driving the signed-in session.
var ctrl *progress.Controller

// Command defines a user command in the system. Each command has a Name, a
// Desc (short for description), and a Func (the function to execute when
// the command is called).
type Command struct {
	Name string
	Desc string
	Func func(c *ishell.Context)
}

// Init sets up the shell and its command sets around the given controller.
func Init(controller *progress.Controller) {
	ctrl = controller
	shell = ishell.New()

	guestCommands = []Command{
		{
			Name: "signin",
			Desc: "Sign in to your account",
			Func: signInCmd,
		},
		{
			Name: "signup",
			Desc: "Sign up for a new account",
			Func: signUpCmd,
		},
	}

	userCommands = []Command{
		{
			Name: "roadmap",
			Desc: "Show the roadmap with your progress",
			Func: roadmapCmd,
		},
		{
			Name: "toggle",
			Desc: "Toggle a task or subtask: toggle <phase> <task> [subtask]",
			Func: toggleCmd,
		},
		{
			Name: "progress",
			Desc: "Show overall progress",
			Func: progressCmd,
		},
		{
			Name: "signout",
			Desc: "Sign out of your account",
			Func: signOutCmd,
		},
	}

	addCommands(shell, guestCommands)
}

// Execute prints the banner and runs the shell until exit.
func Execute() {
	banner := figure.NewFigure("Trailhead", "", true)
	banner.Print()
	fmt.Println()
	fmt.Println("Type 'help' to see available commands.")
	shell.Run()
}

func addCommands(s *ishell.Shell, commands []Command) {
	for _, command := range commands {
		cmd := command
		s.AddCmd(&ishell.Cmd{
			Name: cmd.Name,
			Help: cmd.Desc,
			Func: cmd.Func,
		})
	}
}

func becomeUser() {
	loggedIn = true
	for _, command := range guestCommands {
		shell.DeleteCmd(command.Name)
	}
	addCommands(shell, userCommands)
}

func becomeGuest() {
	loggedIn = false
	for _, command := range userCommands {
		shell.DeleteCmd(command.Name)
	}
	addCommands(shell, guestCommands)
}

func signInCmd(c *ishell.Context) {
	var username, password string
	for {
		c.Print("Enter Username: ")
		username = c.ReadLine()

		if len(username) > 1 {
			break
		}
		c.Println("Username must be longer than 1 character.")
	}

	for {
		c.Print("Enter Password: ")
		password = c.ReadPassword()

		if len(password) > 0 {
			break
		}
		c.Println("Password cannot be empty.")
	}

	session, err := client.SignIn(username, password)
	if err != nil {
		utils.PrintError(err.Error())
		return
	}

	if err := ctrl.SignIn(context.Background(), session.UserID, session.Email); err != nil {
		// The session stays usable on the template-only view.
		utils.PrintError(ctrl.ErrorMessage())
	}

	becomeUser()
	c.Println("Welcome, you are now signed in.")
}

func signUpCmd(c *ishell.Context) {
	var username, email, password string
	for {
		c.Print("Enter Username: ")
		username = c.ReadLine()

		if len(username) > 1 {
			break
		}
		c.Println("Username must be longer than 1 character.")
	}

	for {
		c.Print("Enter Email: ")
		email = c.ReadLine()

		if utils.ValidateEmail(email) {
			break
		}
		c.Println("Email is not valid.")
	}

	for {
		c.Print("Enter Password: ")
		password = c.ReadPassword()

		if utils.ValidatePassword(password) {
			c.Print("Confirm Password: ")
			confirmPassword := c.ReadPassword()

			if password == confirmPassword {
				break
			}
			c.Println()
			c.Println("Passwords do not match. Please try again.")
			c.Println()
		} else {
			c.Println()
			c.Println("Password must be at least 8 characters and contain both letters and numbers.")
			c.Println()
		}
	}

	session, err := client.SignUp(username, email, password)
	if err != nil {
		utils.PrintError(err.Error())
		return
	}

	if err := ctrl.SignIn(context.Background(), session.UserID, session.Email); err != nil {
		utils.PrintError(ctrl.ErrorMessage())
	}

	becomeUser()
	c.Println("Account created successfully. You are now signed in.")
}

func signOutCmd(c *ishell.Context) {
	ctrl.SignOut()
	if err := client.ClearKeyring(); err != nil {
		utils.PrintError(err.Error())
	}
	becomeGuest()
	c.Println("You are now signed out.")
}

func roadmapCmd(c *ishell.Context) {
	phases := ctrl.Phases()
	for _, phase := range phases {
		completed, total := phaseCounts(phase)
		c.Printf("\n%s (%s) %d/%d tasks\n", phase.Title, phase.Period, completed, total)
		c.Printf("  id: %s\n", phase.ID)
		for _, task := range phase.Tasks {
			c.Printf("  %s %s  (%s)\n", checkbox(task.Completed), task.Title, task.ID)
			for _, sub := range task.Subtasks {
				c.Printf("      %s %s  (%s)\n", checkbox(sub.Completed), sub.Title, sub.ID)
			}
		}
	}
	printSyncState(c)
}

func toggleCmd(c *ishell.Context) {
	args := c.Args
	if len(args) != 2 && len(args) != 3 {
		c.Println("Usage: toggle <phase> <task> [subtask]")
		return
	}

	var err error
	if len(args) == 2 {
		err = ctrl.ToggleTask(context.Background(), args[0], args[1])
	} else {
		err = ctrl.ToggleSubtask(context.Background(), args[0], args[1], args[2])
	}
	if err != nil {
		if msg := ctrl.ErrorMessage(); msg != "" {
			utils.PrintError(msg)
		} else {
			utils.PrintError(err.Error())
		}
		return
	}
	c.Println("Saved.")
}

func progressCmd(c *ishell.Context) {
	agg := ctrl.Aggregates()
	c.Printf("Tasks:    %d/%d\n", agg.CompletedTasks, agg.TotalTasks)
	c.Printf("Subtasks: %d/%d\n", agg.CompletedSubtasks, agg.TotalSubtasks)
	c.Printf("Overall:  %s\n", utils.ProgressBar(agg.ProgressPercentage, 20))
	printSyncState(c)
}

func printSyncState(c *ishell.Context) {
	state := ctrl.State()
	if state == progress.StateError {
		utils.PrintError(ctrl.ErrorMessage())
		return
	}
	c.Printf("\nsync: %s\n", state)
}

func checkbox(completed bool) string {
	if completed {
		return "[x]"
	}
	return "[ ]"
}

func phaseCounts(phase models.Phase) (completed, total int) {
	total = len(phase.Tasks)
	for _, task := range phase.Tasks {
		if task.Completed {
			completed++
		}
	}
	return completed, total
}
