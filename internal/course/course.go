// Package course holds the static "Formation Prompting" catalog: the five
// instructional modules and the three quiz exercises.
package course

// Kind identifies how a module's content is laid out.
type Kind string

const (
	KindIntro    Kind = "intro"
	KindElements Kind = "elements"
	KindTemplate Kind = "template"
	KindPitfalls Kind = "pitfalls"
	KindQuiz     Kind = "quiz"
)

// Module is one step of the course.
type Module struct {
	ID       int
	Title    string
	Duration string
	Kind     Kind

	Concept    string
	BadPrompt  string
	GoodPrompt string
	KeyIdea    string

	Elements []Element

	Template string
	Example  string
	Tip      string

	Pitfalls  []Pitfall
	Solutions []string
}

// Element is one of the five ingredients of a good prompt.
type Element struct {
	Icon        string
	Name        string
	Description string
}

// Pitfall is a common prompting mistake with an example.
type Pitfall struct {
	Kind    string
	Example string
}

// ExerciseType classifies a quiz exercise.
type ExerciseType string

const (
	ExerciseTransformation ExerciseType = "transformation"
	ExerciseCreation       ExerciseType = "creation"
	ExerciseAnalysis       ExerciseType = "analyse"
)

// Exercise is one quiz question. IDs are 1-based and match answer indices.
type Exercise struct {
	ID       int
	Question string
	Prompt   string
	Type     ExerciseType
}

// Title and audience shown in headers.
const (
	Title    = "Formation Prompting"
	Audience = "ENFIN LIBRE - Responsables de Pôles"
)

// QuizModuleID is the index of the final quiz module.
const QuizModuleID = 4

var modules = []Module{
	{
		ID:         0,
		Title:      "Introduction : Pourquoi le prompting ?",
		Duration:   "5 min",
		Kind:       KindIntro,
		Concept:    "L'IA n'est pas devin - Elle a besoin d'instructions claires",
		BadPrompt:  "Optimise mon service client",
		GoodPrompt: "Je suis responsable du pôle Success Client chez Enfin Libre. Nous avons 3 personnes, utilisons Zendesk et Slack. Objectif : réduire le temps de réponse à moins de 2h. Comment y parvenir ?",
		KeyIdea:    "Garbage in = Garbage out",
	},
	{
		ID:       1,
		Title:    "Les 5 éléments clés",
		Duration: "5 min",
		Kind:     KindElements,
		Elements: []Element{
			{Icon: "🎯", Name: "Objectif clair", Description: "Ce que tu veux obtenir exactement"},
			{Icon: "🏢", Name: "Contexte", Description: "Ton rôle, pôle, outils, situation"},
			{Icon: "🧩", Name: "Contraintes", Description: "Limites, ce que tu veux éviter"},
			{Icon: "💬", Name: "Format souhaité", Description: "Liste, plan, modèle, etc."},
			{Icon: "🧠", Name: "Niveau attendu", Description: "Basique, expert, vulgarisé"},
		},
	},
	{
		ID:       2,
		Title:    "Le modèle universel",
		Duration: "5 min",
		Kind:     KindTemplate,
		Template: `Je suis [rôle, pôle, contexte précis].
Voici mon objectif : [objectif mesurable].
Contraintes/outils : [infos techniques, limites].
Je souhaite obtenir : [type de réponse].
Fais-le de manière : [précise, experte, etc.]`,
		Example: "Je suis responsable du pôle pédagogie chez Enfin Libre. Mon objectif est d'augmenter le taux de complétion de notre formation chez les élèves inactifs entre la semaine 2 et 3. Nous utilisons Kajabi et Slack. Donne-moi un plan en 5 étapes pour améliorer leur engagement.",
		Tip:     "Adaptez ce modèle à votre pôle et gardez-le sous la main !",
	},
	{
		ID:       3,
		Title:    "Erreurs à éviter",
		Duration: "5 min",
		Kind:     KindPitfalls,
		Pitfalls: []Pitfall{
			{Kind: "Trop vague", Example: "Aide-moi à améliorer mon équipe"},
			{Kind: "Pas de contexte", Example: "Propose-moi une idée de post"},
			{Kind: "Demandes floues", Example: "Sois original"},
		},
		Solutions: []string{"Contexte complet", "Résultat attendu", "Contraintes opérationnelles", "Format clair"},
	},
	{
		ID:       QuizModuleID,
		Title:    "Quiz final",
		Duration: "5 min",
		Kind:     KindQuiz,
		Concept:  "Testez vos connaissances et obtenez une analyse détaillée de vos réponses !",
	},
}

var exercises = []Exercise{
	{
		ID:       1,
		Question: "Transformez ce mauvais prompt en bon prompt :",
		Prompt:   "Je veux améliorer les ventes",
		Type:     ExerciseTransformation,
	},
	{
		ID:       2,
		Question: "Créez un prompt pour votre pôle spécifique chez Enfin Libre :",
		Prompt:   "Décrivez une problématique de votre pôle et rédigez un prompt complet",
		Type:     ExerciseCreation,
	},
	{
		ID:       3,
		Question: "Identifiez les erreurs dans ce prompt :",
		Prompt:   "Fais quelque chose de bien pour mon équipe qui soit original et utile",
		Type:     ExerciseAnalysis,
	},
}

// Modules returns a copy of the course modules in order.
func Modules() []Module {
	out := make([]Module, len(modules))
	copy(out, modules)
	return out
}

// ModuleCount returns the number of modules in the course.
func ModuleCount() int {
	return len(modules)
}

// Exercises returns a copy of the quiz exercises ordered by ID.
func Exercises() []Exercise {
	out := make([]Exercise, len(exercises))
	copy(out, exercises)
	return out
}
