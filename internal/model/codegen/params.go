package codegen

import "fmt"

// ParentClasses is the fixed set of UE base classes the generator accepts.
var ParentClasses = []string{
	"AActor",
	"APawn",
	"ACharacter",
	"UActorComponent",
	"AGameModeBase",
	"UObject",
}

// Params describes one class generation request.
type Params struct {
	ClassName   string `json:"className"`
	ParentClass string `json:"parentClass"`
	Features    string `json:"features"`
}

// Validate checks the parameter set against the accepted base classes.
func (p Params) Validate() error {
	if p.ClassName == "" {
		return fmt.Errorf("className is required")
	}
	for _, parent := range ParentClasses {
		if p.ParentClass == parent {
			return nil
		}
	}
	return fmt.Errorf("unknown parent class %q", p.ParentClass)
}
