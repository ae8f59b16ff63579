package usecase

import (
	"fmt"
	"strings"

	"github.com/juristcu/juristcu-api/internal/core/domain"
)

const evaluationSystemPrompt = "Você é um especialista em análise de acórdãos do TCU. Retorne apenas JSON válido."

func buildEvaluationPrompt(caseText string, doc domain.Acordao, criterion string, excerptChars, justificationChars int) string {
	var b strings.Builder
	b.WriteString("Você é um especialista em análise de acórdãos do TCU.\n\n")
	b.WriteString("Analise se o seguinte caso concreto e o acórdão relacionado atendem ao critério especificado.\n\n")

	b.WriteString("CASO CONCRETO:\n")
	b.WriteString(caseText)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "ACÓRDÃO (Número %s/%d):\n", doc.Numero, doc.Ano)
	fmt.Fprintf(&b, "Título: %s\n", orNA(doc.Titulo))
	fmt.Fprintf(&b, "Sumário: %s\n", orNA(doc.Sumario))
	fmt.Fprintf(&b, "Texto extraído: %s\n\n", orNA(truncateRunes(doc.TextoPDF, excerptChars)))

	b.WriteString("CRITÉRIO A AVALIAR:\n")
	b.WriteString(criterion)
	b.WriteString("\n\n")

	b.WriteString("Responda APENAS com um JSON no formato:\n")
	b.WriteString("{\n")
	b.WriteString("  \"atende\": true ou false,\n")
	fmt.Fprintf(&b, "  \"justificativa\": \"explicação breve (max %d caracteres)\"\n", justificationChars)
	b.WriteString("}\n\n")
	b.WriteString("IMPORTANTE: Seja rigoroso. O critério deve ser claramente atendido.")
	return b.String()
}

func orNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return "N/A"
	}
	return value
}

// truncateRunes cuts s to at most n runes without splitting a UTF-8 sequence.
func truncateRunes(s string, n int) string {
	if n < 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
