package progress

import "math"

// Percent converte bytes transferidos em porcentagem arredondada (0..100).
func Percent(loaded, total int64) int {
	if total <= 0 || loaded <= 0 {
		return 0
	}
	if loaded >= total {
		return 100
	}
	return int(math.Round(float64(loaded) * 100 / float64(total)))
}

// Tracker filtra notificações de progresso de um único upload, emitindo apenas
// valores estritamente maiores que o último emitido.
type Tracker struct {
	last int
	emit func(percent int)
}

// NewTracker cria um tracker local à requisição.
func NewTracker(emit func(percent int)) *Tracker {
	return &Tracker{emit: emit}
}

// Observe recebe o total acumulado informado pelo host de mídia.
func (t *Tracker) Observe(loaded, total int64) {
	t.Offer(Percent(loaded, total))
}

// Offer emite percent se ele superar o último valor emitido.
func (t *Tracker) Offer(percent int) bool {
	if percent > 100 {
		percent = 100
	}
	if percent <= t.last {
		return false
	}
	t.last = percent
	if t.emit != nil {
		t.emit(percent)
	}
	return true
}

// Last devolve o último percentual emitido.
func (t *Tracker) Last() int {
	return t.last
}
