package ai

import (
	"fmt"

	"github.com/uedevkit/assistant/backend/internal/model/codegen"
)

// systemInstruction frames every chat turn.
const systemInstruction = `You are an expert Unreal Engine 5 Developer Assistant.
Your goal is to help users write C++ code, understand Blueprints, and solve UE5 specific problems.

Guidelines:
1. When providing C++ code, adhere to UE5 coding standards (prefix classes with A for Actor, U for Object, F for Structs, T for Templates).
2. Use UPROPERTY and UFUNCTION macros correctly with appropriate specifiers (e.g., EditAnywhere, BlueprintReadWrite).
3. For Blueprint questions, describe the node logic clearly or suggest specific nodes to use.
4. If the user asks about API specifics, prefer recent UE5 documentation.
5. Keep responses concise and technical but accessible.
6. Format code blocks clearly with language specifiers (cpp, python).`

// ClassPrompt interpolates the generation parameters into the fixed code
// synthesis template.
func ClassPrompt(params codegen.Params) string {
	return fmt.Sprintf(`Generate a complete Unreal Engine 5 C++ Header (.h) and Source (.cpp) file content for the following request.

Class Name: %s
Parent Class: %s
Desired Features/Logic: %s

Requirements:
- Include necessary headers.
- Use correct prefixes (A%s or U%s).
- Include constructor.
- Add 'Generate Body' macro.
- Add comments explaining the code.
- Output the result as two distinct code blocks.`,
		params.ClassName, params.ParentClass, params.Features,
		params.ClassName, params.ClassName)
}
