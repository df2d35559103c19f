package feedback

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/enfinlibre/formation/internal/course"
	"github.com/enfinlibre/formation/internal/store"
)

// NotAnswered stands in for a missing or blank answer in the prompt.
const NotAnswered = "(non répondu)"

const systemPrompt = `Tu es un formateur expert en prompt engineering. Tu analyses les réponses des responsables de pôles d'Enfin Libre au quiz final d'une formation au prompting et tu donnes un retour constructif, en français.`

const textFormatInstructions = `

Réponds uniquement en texte brut, en suivant exactement ce format pour chacune des trois questions :

Question <numéro>
Score : <note>/10
Commentaire : <une phrase qui résume ton analyse>
- <suggestion d'amélioration>
- <suggestion d'amélioration>

Une réponse "` + NotAnswered + `" reçoit la note 0/10.`

const structuredFormatInstructions = `

Réponds avec un objet JSON dont les clés sont "1", "2" et "3". Chaque valeur contient "score" (entier de 0 à 10), "feedback" (une phrase qui résume ton analyse) et "suggestions" (liste de suggestions d'amélioration). Une réponse "` + NotAnswered + `" reçoit la note 0.`

// SystemInstruction returns the system prompt for the given output mode.
func SystemInstruction(structured bool) string {
	if structured {
		return systemPrompt + structuredFormatInstructions
	}
	return systemPrompt + textFormatInstructions
}

var userTemplate = template.Must(template.New("quiz").Parse(`Analyse ces réponses au quiz final. Pour chaque réponse, donne une note sur 10, un commentaire et des suggestions d'amélioration précises.
{{range .}}
Question {{.ID}} ({{.Type}}) : {{.Question}}
Énoncé : "{{.Prompt}}"
Réponse : """
{{.Answer}}
"""
{{end}}`))

type promptItem struct {
	course.Exercise
	Answer string
}

// BuildPrompt renders the user message for the three quiz exercises.
// It is deterministic: the same answers always produce the same prompt.
func BuildPrompt(answers store.Answers) (string, error) {
	items := make([]promptItem, 0, store.QuestionCount)
	for _, ex := range course.Exercises() {
		answer := strings.TrimSpace(answers[ex.ID])
		if answer == "" {
			answer = NotAnswered
		}
		items = append(items, promptItem{Exercise: ex, Answer: answer})
	}

	var buf bytes.Buffer
	if err := userTemplate.Execute(&buf, items); err != nil {
		return "", err
	}
	return buf.String(), nil
}
