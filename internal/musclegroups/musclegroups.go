package musclegroups

// MuscleGroup is a static lookup entry, not user-editable.
type MuscleGroup struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// All returns the fixed muscle group catalog, in display order.
func All() []MuscleGroup {
	return []MuscleGroup{
		{ID: "chest", Name: "胸", Color: "bg-red-500"},
		{ID: "shoulders", Name: "肩", Color: "bg-orange-500"},
		{ID: "arms", Name: "腕", Color: "bg-yellow-500"},
		{ID: "back", Name: "背中", Color: "bg-green-500"},
		{ID: "legs", Name: "脚", Color: "bg-blue-500"},
		{ID: "core", Name: "体幹", Color: "bg-purple-500"},
	}
}

// Valid reports whether id names a known muscle group.
func Valid(id string) bool {
	for _, mg := range All() {
		if mg.ID == id {
			return true
		}
	}
	return false
}
