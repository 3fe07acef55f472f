// Package roadmap holds the static roadmap template: an ordered catalog of
// phases, tasks and subtasks. The template is pure data; per-user completion
// state lives in a separate progress record and is overlaid at read time.
package roadmap

import (
	"github.com/jghoshh/trailhead/models"
)

// Phases returns a deep copy of the roadmap template. Callers own the
// returned tree and may mutate it freely without affecting the template.
func Phases() []models.Phase {
	return Clone(template)
}

// Clone deep-copies a phase tree so that toggles on the copy never reach
// the original.
func Clone(phases []models.Phase) []models.Phase {
	out := make([]models.Phase, len(phases))
	for i, phase := range phases {
		out[i] = phase
		out[i].Tasks = make([]models.Task, len(phase.Tasks))
		for j, task := range phase.Tasks {
			out[i].Tasks[j] = task
			if task.CompletedAt != nil {
				ts := *task.CompletedAt
				out[i].Tasks[j].CompletedAt = &ts
			}
			if task.Subtasks != nil {
				out[i].Tasks[j].Subtasks = make([]models.Subtask, len(task.Subtasks))
				for k, sub := range task.Subtasks {
					out[i].Tasks[j].Subtasks[k] = sub
					if sub.CompletedAt != nil {
						ts := *sub.CompletedAt
						out[i].Tasks[j].Subtasks[k].CompletedAt = &ts
					}
				}
			}
		}
	}
	return out
}

var template = []models.Phase{
	{
		ID:          "foundations",
		Title:       "AI & ML Foundations",
		Period:      "July – August 2025",
		Description: "Build solid foundations in mathematics, programming, and core AI/ML concepts.",
		Color:       "blue",
		Icon:        "foundation",
		Tasks: []models.Task{
			{
				ID:          "linear-algebra",
				Title:       "Complete Linear Algebra (Khan Academy/3Blue1Brown)",
				Description: "Vectors, matrices, matrix multiplication, eigenvalues, eigenvectors, SVD",
				Subtasks: []models.Subtask{
					{ID: "la-1", Title: "Watch 3Blue1Brown Essence of Linear Algebra series"},
					{ID: "la-2", Title: "Complete Khan Academy Linear Algebra course"},
					{ID: "la-3", Title: "Practice matrix operations in Python/NumPy"},
					{ID: "la-4", Title: "Understand eigenvalues and eigenvectors"},
					{ID: "la-5", Title: "Learn Singular Value Decomposition (SVD)"},
				},
			},
			{
				ID:          "calculus",
				Title:       "Learn Calculus fundamentals",
				Description: "Derivatives, gradients, chain rule, partial derivatives",
				Subtasks: []models.Subtask{
					{ID: "calc-1", Title: "Master derivatives and differentiation rules"},
					{ID: "calc-2", Title: "Understand partial derivatives"},
					{ID: "calc-3", Title: "Learn chain rule for composite functions"},
					{ID: "calc-4", Title: "Practice gradient calculations"},
				},
			},
			{
				ID:          "probability-stats",
				Title:       "Study Probability & Statistics",
				Description: "Probability rules, distributions, Bayes theorem, expectation, variance, hypothesis testing",
				Subtasks: []models.Subtask{
					{ID: "prob-1", Title: "Learn basic probability rules and concepts"},
					{ID: "prob-2", Title: "Study common probability distributions"},
					{ID: "prob-3", Title: "Master Bayes theorem and applications"},
				},
			},
			{
				ID:          "python-mastery",
				Title:       "Master Python programming",
				Description: "OOP, functional programming, recursion, error handling",
				Subtasks: []models.Subtask{
					{ID: "py-1", Title: "Master Python OOP concepts (classes, inheritance)"},
					{ID: "py-2", Title: "Learn functional programming in Python"},
					{ID: "py-3", Title: "Practice recursion and recursive algorithms"},
				},
			},
			{
				ID:          "andrew-ng-course",
				Title:       "Complete Andrew Ng's ML Course (Coursera)",
				Description: "Cost functions, gradient descent, logistic regression, SVMs, weekly exercises",
			},
		},
	},
	{
		ID:          "projects",
		Title:       "Hands-on Projects",
		Period:      "September – October 2025",
		Description: "Apply foundations by building and documenting end-to-end ML projects.",
		Color:       "green",
		Icon:        "wrench",
		Tasks: []models.Task{
			{
				ID:          "spam-classifier",
				Title:       "Build Spam Email Classifier (Naive Bayes)",
				Description: "Dataset collection, preprocessing, model training, evaluation",
				Subtasks: []models.Subtask{
					{ID: "spam-1", Title: "Collect and explore a spam dataset"},
					{ID: "spam-2", Title: "Implement text preprocessing pipeline"},
					{ID: "spam-3", Title: "Train and evaluate the classifier"},
				},
			},
			{
				ID:          "house-price-prediction",
				Title:       "Create House Price Prediction model (Linear Regression)",
				Description: "Feature engineering, regression, validation",
			},
			{
				ID:          "image-classifier",
				Title:       "Build Image Classifier (CNN)",
				Description: "Convolutional networks, data augmentation, transfer learning",
				Subtasks: []models.Subtask{
					{ID: "img-1", Title: "Learn CNN architectures"},
					{ID: "img-2", Title: "Train a classifier on CIFAR-10"},
					{ID: "img-3", Title: "Apply transfer learning with a pretrained model"},
				},
			},
			{
				ID:          "document-projects",
				Title:       "Document all projects with clean code & README",
				Description: "Readable repositories with clear writeups and results",
			},
		},
	},
	{
		ID:          "opensource",
		Title:       "Open Source Contributions",
		Period:      "November – December 2025",
		Description: "Find AI-related organizations and build a contribution track record.",
		Color:       "purple",
		Icon:        "git",
		Tasks: []models.Task{
			{
				ID:          "research-gsoc-orgs",
				Title:       "Research AI-related GSoC organizations",
				Description: "Survey past participating organizations and their project areas",
			},
			{
				ID:          "understand-repos",
				Title:       "Study organization repositories",
				Description: "Build, run, and read the codebases of the chosen organizations",
				Subtasks: []models.Subtask{
					{ID: "repo-1", Title: "Set up local development environments"},
					{ID: "repo-2", Title: "Read contribution guidelines and issue trackers"},
				},
			},
			{
				ID:          "first-contributions",
				Title:       "Make initial small contributions",
				Description: "Good-first-issue fixes, documentation, test coverage",
			},
			{
				ID:          "meaningful-prs",
				Title:       "Submit meaningful Pull Requests",
				Description: "Feature work or bug fixes with review cycles",
			},
		},
	},
	{
		ID:          "gsoc-prep",
		Title:       "GSoC Application Prep",
		Period:      "January – April 2026",
		Description: "Prepare, refine and submit the GSoC application.",
		Color:       "orange",
		Icon:        "flag",
		Tasks: []models.Task{
			{
				ID:          "study-proposals",
				Title:       "Study past accepted GSoC proposals",
				Description: "Structure, scope, timelines of successful applications",
			},
			{
				ID:          "draft-proposal",
				Title:       "Start proposal draft (Feb-Mar)",
				Description: "Problem statement, deliverables, weekly plan",
				Subtasks: []models.Subtask{
					{ID: "draft-1", Title: "Outline the proposal structure"},
					{ID: "draft-2", Title: "Write the first full draft"},
					{ID: "draft-3", Title: "Iterate with community feedback"},
				},
			},
			{
				ID:          "engage-mentors",
				Title:       "Engage with potential mentors",
				Description: "Discuss project ideas on community channels",
			},
			{
				ID:          "submit-application",
				Title:       "Submit GSoC application before deadline",
				Description: "Final review and submission",
			},
		},
	},
}
