package api

import "net/http"

// ListCards returns the user's cards; a user without cards gets [].
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	list, err := h.Cards.List(r.Context(), uid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CardsResponse{Cards: toCardDTOs(list)})
}

func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req CardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	card, err := h.Cards.Create(r.Context(), uid, req.details())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CardResponse{Message: "Card created successfully", Card: toCardDTO(card)})
}

// UpdateCard replaces a card's details. "isDefault": true promotes it.
func (h *Handler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req CardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	card, err := h.Cards.Update(r.Context(), uid, req.cardID(), req.details(), req.IsDefault)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CardResponse{Message: "Card updated successfully", Card: toCardDTO(card)})
}

func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req CardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	remaining, err := h.Cards.Delete(r.Context(), uid, req.cardID())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteCardResponse{Message: "Card deleted successfully", Cards: toCardDTOs(remaining)})
}
