package maker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"maker/internal/model"
)

func TestBookManager_Prune(t *testing.T) {
	symbol := model.Symbol{Base: "SHIB", Quote: "USDT"}
	current := d("100")

	newBooks := func(gateway *MockGateway, repo *MockRepository) *BookManager {
		return NewBookManager(testLogger(), gateway, repo, d("0.02"))
	}

	t.Run("empty book performs no cancels", func(t *testing.T) {
		gateway := new(MockGateway)
		repo := new(MockRepository)
		gateway.On("OpenOrders", mock.Anything, symbol).Return([]model.Order{}, nil)

		cancelled, err := newBooks(gateway, repo).Prune(context.Background(), symbol, current)
		assert.NoError(t, err)
		assert.Empty(t, cancelled)
		gateway.AssertNotCalled(t, "CancelOrder", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cancels only orders past the deviation threshold", func(t *testing.T) {
		gateway := new(MockGateway)
		repo := new(MockRepository)
		// threshold at 2%: buy floor 98, sell ceiling 102; boundary orders stay
		orders := []model.Order{
			{ID: "1", Symbol: symbol, Side: model.Buy, Price: d("97.99"), Amount: d("1"), Status: model.OrderOpen},
			{ID: "2", Symbol: symbol, Side: model.Buy, Price: d("98"), Amount: d("1"), Status: model.OrderOpen},
			{ID: "3", Symbol: symbol, Side: model.Sell, Price: d("102"), Amount: d("1"), Status: model.OrderOpen},
			{ID: "4", Symbol: symbol, Side: model.Sell, Price: d("102.01"), Amount: d("1"), Status: model.OrderOpen},
		}
		gateway.On("OpenOrders", mock.Anything, symbol).Return(orders, nil)
		gateway.On("CancelOrder", mock.Anything, symbol, "1").Return(nil)
		gateway.On("CancelOrder", mock.Anything, symbol, "4").Return(nil)
		repo.On("LogOrderEvent", mock.Anything, mock.Anything).Return(nil)

		cancelled, err := newBooks(gateway, repo).Prune(context.Background(), symbol, current)
		assert.NoError(t, err)
		assert.Equal(t, []string{"1", "4"}, cancelled)
		gateway.AssertExpectations(t)
		gateway.AssertNumberOfCalls(t, "CancelOrder", 2)
	})

	t.Run("a failed cancel does not block the others", func(t *testing.T) {
		gateway := new(MockGateway)
		repo := new(MockRepository)
		orders := []model.Order{
			{ID: "A", Symbol: symbol, Side: model.Buy, Price: d("90"), Amount: d("1"), Status: model.OrderOpen},
			{ID: "B", Symbol: symbol, Side: model.Buy, Price: d("91"), Amount: d("1"), Status: model.OrderOpen},
		}
		gateway.On("OpenOrders", mock.Anything, symbol).Return(orders, nil)
		gateway.On("CancelOrder", mock.Anything, symbol, "A").Return(errors.New("connection reset"))
		gateway.On("CancelOrder", mock.Anything, symbol, "B").Return(nil)
		repo.On("LogOrderEvent", mock.Anything, mock.Anything).Return(nil)

		cancelled, err := newBooks(gateway, repo).Prune(context.Background(), symbol, current)
		assert.NoError(t, err)
		assert.Equal(t, []string{"B"}, cancelled)
		gateway.AssertNumberOfCalls(t, "CancelOrder", 2)
	})

	t.Run("propagates a listing failure", func(t *testing.T) {
		gateway := new(MockGateway)
		repo := new(MockRepository)
		gateway.On("OpenOrders", mock.Anything, symbol).Return(nil, errors.New("timeout"))

		cancelled, err := newBooks(gateway, repo).Prune(context.Background(), symbol, current)
		assert.Error(t, err)
		assert.Nil(t, cancelled)
	})

	t.Run("journals successful cancellations", func(t *testing.T) {
		gateway := new(MockGateway)
		repo := new(MockRepository)
		orders := []model.Order{
			{ID: "7", Symbol: symbol, Side: model.Sell, Price: d("110"), Amount: d("3"), Status: model.OrderOpen},
		}
		gateway.On("OpenOrders", mock.Anything, symbol).Return(orders, nil)
		gateway.On("CancelOrder", mock.Anything, symbol, "7").Return(nil)
		repo.On("LogOrderEvent", mock.Anything, mock.MatchedBy(func(event model.OrderEvent) bool {
			return event.Action == model.EventCancelled && event.OrderID == "7" && event.Side == string(model.Sell)
		})).Return(nil).Once()

		_, err := newBooks(gateway, repo).Prune(context.Background(), symbol, current)
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("a journal failure does not fail the prune", func(t *testing.T) {
		gateway := new(MockGateway)
		repo := new(MockRepository)
		orders := []model.Order{
			{ID: "8", Symbol: symbol, Side: model.Buy, Price: d("50"), Amount: d("2"), Status: model.OrderOpen},
		}
		gateway.On("OpenOrders", mock.Anything, symbol).Return(orders, nil)
		gateway.On("CancelOrder", mock.Anything, symbol, "8").Return(nil)
		repo.On("LogOrderEvent", mock.Anything, mock.Anything).Return(errors.New("database down"))

		cancelled, err := newBooks(gateway, repo).Prune(context.Background(), symbol, current)
		assert.NoError(t, err)
		assert.Equal(t, []string{"8"}, cancelled)
	})
}
