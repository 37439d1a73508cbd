package postgres

import (
	"fmt"
	"strings"

	"equipment-rental-backend/internal/repository"
)

// whereClause accumulates AND-ed predicates with positional arguments.
type whereClause struct {
	conds []string
	args  []any
}

// add appends a predicate; every %d in cond is replaced by the argument's position.
func (w *whereClause) add(cond string, arg any) {
	w.args = append(w.args, arg)
	n := len(w.args)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "%d", fmt.Sprint(n)))
}

func (w *whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// next is the position the next argument will take.
func (w *whereClause) next() int {
	return len(w.args) + 1
}

func equipmentWhere(f repository.EquipmentFilter) *whereClause {
	w := &whereClause{}
	if f.OwnerID != "" {
		w.add("owner_id = $%d", f.OwnerID)
	}
	if f.Category != "" {
		w.add("category = $%d", string(f.Category))
	}
	if f.Status != "" {
		w.add("status = $%d", string(f.Status))
	}
	if f.MinRate != nil {
		w.add("daily_rate >= $%d", *f.MinRate)
	}
	if f.MaxRate != nil {
		w.add("daily_rate <= $%d", *f.MaxRate)
	}
	if f.NameContains != "" {
		w.add("name ILIKE $%d", "%"+escapeLike(f.NameContains)+"%")
	}
	return w
}

func reservationWhere(f repository.ReservationFilter) *whereClause {
	w := &whereClause{}
	if f.EquipmentID != "" {
		w.add("equipment_id = $%d", f.EquipmentID)
	}
	if f.RequesterID != "" {
		w.add("requester_id = $%d", f.RequesterID)
	}
	if f.Status != "" {
		w.add("status = $%d", string(f.Status))
	}
	if f.StartFrom != nil {
		w.add("start_date >= $%d", *f.StartFrom)
	}
	if f.EndBefore != nil {
		w.add("COALESCE(late_end_date, end_date) < $%d", *f.EndBefore)
	}
	if f.AddressContains != "" {
		w.add("delivery_address ILIKE $%d", "%"+escapeLike(f.AddressContains)+"%")
	}
	return w
}

var equipmentSortColumns = map[string]string{
	"createdAt":         "created_at",
	"name":              "name",
	"dailyRate":         "daily_rate",
	"availableQuantity": "available_quantity",
	"averageRating":     "average_rating",
}

var reservationSortColumns = map[string]string{
	"createdAt": "created_at",
	"startDate": "start_date",
	"endDate":   "end_date",
	"quantity":  "quantity",
}

func orderBy(page repository.Pagination, allowed []string, columns map[string]string) string {
	field, desc := page.SortKey(allowed, "createdAt")
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id ASC", columns[field], dir)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
